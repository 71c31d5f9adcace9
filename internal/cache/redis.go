package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
)

// DefaultKeyPrefix namespaces session entries in Redis.
const DefaultKeyPrefix = "recipe-share:search:"

// beginScript records the session's current search and drops its entry.
// KEYS: entry, current search. ARGV: search id, ttl seconds.
var beginScript = rueidis.NewLuaScript(`
if tonumber(ARGV[2]) > 0 then
  redis.call('SET', KEYS[2], ARGV[1], 'EX', ARGV[2])
else
  redis.call('SET', KEYS[2], ARGV[1])
end
redis.call('DEL', KEYS[1])
return 1
`)

// putScript stores the entry only while its search is current.
// KEYS: entry, current search. ARGV: search id, entry, ttl seconds.
var putScript = rueidis.NewLuaScript(`
if redis.call('GET', KEYS[2]) ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'EX', ARGV[3])
  redis.call('EXPIRE', KEYS[2], ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// RedisConfig holds connection parameters for the Redis cache.
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Prefix   string
	// TTL of zero keeps entries until they are replaced or invalidated
	TTL time.Duration
}

// Redis is a Cache shared between server instances.
type Redis struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to Redis via rueidis.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return newRedisWithClient(client, cfg.Prefix, cfg.TTL), nil
}

func newRedisWithClient(client rueidis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// key hash-tags the session ID so both of its keys share a cluster slot.
func (r *Redis) key(sessionID string) string {
	return r.prefix + "{" + sessionID + "}"
}

func (r *Redis) currentKey(sessionID string) string {
	return r.key(sessionID) + ":current"
}

func (r *Redis) ttlArg() string {
	return strconv.FormatInt(int64(r.ttl/time.Second), 10)
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, sessionID string) (*Entry, error) {
	cmd := r.client.B().Get().Key(r.key(sessionID)).Build()
	data, err := r.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &Error{Op: "get", SessionID: sessionID, Cause: err}
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, &Error{Op: "decode", SessionID: sessionID, Cause: err}
	}
	return &entry, nil
}

// Begin implements Cache.
func (r *Redis) Begin(ctx context.Context, sessionID string, searchID uuid.UUID) error {
	keys := []string{r.key(sessionID), r.currentKey(sessionID)}
	if err := beginScript.Exec(ctx, r.client, keys, []string{searchID.String(), r.ttlArg()}).Error(); err != nil {
		return &Error{Op: "begin", SessionID: sessionID, Cause: err}
	}
	return nil
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, sessionID string, entry *Entry) (bool, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return false, &Error{Op: "encode", SessionID: sessionID, Cause: err}
	}

	keys := []string{r.key(sessionID), r.currentKey(sessionID)}
	args := []string{entry.SearchID.String(), string(data), r.ttlArg()}
	stored, err := putScript.Exec(ctx, r.client, keys, args).AsInt64()
	if err != nil {
		return false, &Error{Op: "put", SessionID: sessionID, Cause: err}
	}
	return stored == 1, nil
}

// Invalidate implements Cache.
func (r *Redis) Invalidate(ctx context.Context, sessionID string) error {
	cmd := r.client.B().Del().Key(r.key(sessionID), r.currentKey(sessionID)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return &Error{Op: "invalidate", SessionID: sessionID, Cause: err}
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *Redis) Close() {
	r.client.Close()
}
