package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisAbuseGateScript = `
local current = redis.call("INCRBY", KEYS[1], ARGV[1])
if current == tonumber(ARGV[1]) then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return current
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisAbuseGate struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

// NewRedisAbuseGate comparte los contadores entre instancias via Redis.
func NewRedisAbuseGate(client *redis.Client, window time.Duration, maxWeight int) AbuseGate {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if maxWeight <= 0 {
		maxWeight = 1
	}
	return &redisAbuseGate{
		client: client,
		window: window,
		max:    maxWeight,
		prefix: "abuse:",
	}
}

// Protect devuelve error si Redis falla; quien llama decide si deja pasar.
func (g *redisAbuseGate) Protect(ctx context.Context, req ProtectRequest) (Decision, error) {
	if !validIdentity(req.Identity) {
		return GateDecision{Denied: true, Reason: reasonInvalidIdentity}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	weight := requestWeight(req.Weight)
	seconds := int(g.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	for _, k := range gateKeys(req, g.max) {
		count, err := g.client.Eval(ctx, redisAbuseGateScript, []string{g.prefix + k.key}, weight, seconds).Int()
		if err != nil {
			return GateDecision{}, err
		}
		if count > k.max {
			return GateDecision{Denied: true, Reason: reasonRateLimited}, nil
		}
	}
	return GateDecision{}, nil
}
