// Package schemas embeds the JSON Schemas for structured artifacts.
package schemas

import _ "embed"

// RecipeRecord is the schema an extracted recipe page must satisfy.
//
//go:embed recipe_record.schema.json
var RecipeRecord []byte
