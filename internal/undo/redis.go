package undo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"petcare/internal/clock"
	"petcare/internal/lifecycle"
)

// RedisLedger keeps undo contexts in Redis so every API instance sees the
// same window. Keys expire with the context.
type RedisLedger struct {
	rdb    *redis.Client
	clock  clock.Clock
	prefix string
}

// KEYS[1] token key, KEYS[2] per-appointment pointer.
// ARGV[1] payload, ARGV[2] ttl ms, ARGV[3] scoped token key prefix, ARGV[4] token.
var saveScript = redis.NewScript(`
local prev = redis.call("GET", KEYS[2])
if prev then
  redis.call("DEL", ARGV[3] .. prev)
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("SET", KEYS[2], ARGV[4], "PX", ARGV[2])
return 1
`)

func NewRedisLedger(rdb *redis.Client, clk clock.Clock, prefix string) *RedisLedger {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "undo"
	}
	return &RedisLedger{rdb: rdb, clock: clk, prefix: prefix}
}

func (l *RedisLedger) Save(ctx context.Context, u lifecycle.UndoContext) error {
	ttl := u.ExpiresAt.Sub(l.clock.Now())
	if ttl.Milliseconds() <= 0 {
		return ErrWindowClosed
	}
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	scope := l.scopePrefix(u.FacilityID, u.Kind)
	keys := []string{scope + u.Token, l.latestKey(u)}
	return saveScript.Run(ctx, l.rdb, keys, payload, ttl.Milliseconds(), scope, u.Token).Err()
}

func (l *RedisLedger) Take(ctx context.Context, facilityID string, kind lifecycle.Kind, token string) (lifecycle.UndoContext, error) {
	b, err := l.rdb.GetDel(ctx, l.scopePrefix(facilityID, kind)+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return lifecycle.UndoContext{}, lifecycle.ErrUndoExpired
	}
	if err != nil {
		return lifecycle.UndoContext{}, err
	}
	var u lifecycle.UndoContext
	if err := json.Unmarshal(b, &u); err != nil {
		return lifecycle.UndoContext{}, err
	}
	if l.clock.Now().After(u.ExpiresAt) {
		return lifecycle.UndoContext{}, lifecycle.ErrUndoExpired
	}
	return u, nil
}

// ReadyCheck pings Redis for /readyz.
func (l *RedisLedger) ReadyCheck(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

// scopePrefix namespaces tokens by facility and kind so a token presented
// elsewhere is never found, and so never consumed.
func (l *RedisLedger) scopePrefix(facilityID string, kind lifecycle.Kind) string {
	return l.prefix + ":token:" + facilityID + ":" + string(kind) + ":"
}

func (l *RedisLedger) latestKey(u lifecycle.UndoContext) string {
	return l.prefix + ":latest:" + entityKey(u)
}
