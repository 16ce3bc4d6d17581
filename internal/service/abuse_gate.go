package service

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"
)

// ProtectRequest describe una accion sensible a abuso, como un registro.
type ProtectRequest struct {
	Identity string
	Weight   int
	ClientIP string
}

// Decision es el resultado de AbuseGate.Protect.
type Decision interface {
	IsDenied() bool
}

type GateDecision struct {
	Denied bool
	Reason string
}

func (d GateDecision) IsDenied() bool {
	return d.Denied
}

const (
	reasonInvalidIdentity = "invalid_identity"
	reasonRateLimited     = "rate_limited"
)

// AbuseGate decide si una solicitud debe rechazarse por abuso o bots.
type AbuseGate interface {
	Protect(ctx context.Context, req ProtectRequest) (Decision, error)
}

type gateKey struct {
	key string
	max int
}

// gateKeys limita por identidad y, con el doble de cupo, por IP.
func gateKeys(req ProtectRequest, max int) []gateKey {
	keys := []gateKey{{key: "email:" + strings.ToLower(strings.TrimSpace(req.Identity)), max: max}}
	if ip := strings.TrimSpace(req.ClientIP); ip != "" {
		keys = append(keys, gateKey{key: "ip:" + ip, max: max * 2})
	}
	return keys
}

func validIdentity(identity string) bool {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return false
	}
	addr, err := mail.ParseAddress(identity)
	return err == nil && addr.Address == identity
}

func requestWeight(w int) int {
	if w <= 0 {
		return 1
	}
	return w
}

type weightedHit struct {
	at     time.Time
	weight int
}

type memoryAbuseGate struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	hits      map[string][]weightedHit
	lastPrune time.Time
	now       func() time.Time
}

// NewMemoryAbuseGate crea un gate en memoria con ventana deslizante ponderada.
func NewMemoryAbuseGate(window time.Duration, maxWeight int) AbuseGate {
	if maxWeight <= 0 {
		maxWeight = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryAbuseGate{
		window: window,
		max:    maxWeight,
		hits:   make(map[string][]weightedHit),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (g *memoryAbuseGate) Protect(_ context.Context, req ProtectRequest) (Decision, error) {
	if !validIdentity(req.Identity) {
		return GateDecision{Denied: true, Reason: reasonInvalidIdentity}, nil
	}
	weight := requestWeight(req.Weight)
	keys := gateKeys(req, g.max)

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	cutoff := now.Add(-g.window)
	if now.Sub(g.lastPrune) >= g.window {
		g.pruneIdle(cutoff)
		g.lastPrune = now
	}

	for _, k := range keys {
		if g.usage(k.key, cutoff)+weight > k.max {
			return GateDecision{Denied: true, Reason: reasonRateLimited}, nil
		}
	}
	for _, k := range keys {
		g.hits[k.key] = append(g.hits[k.key], weightedHit{at: now, weight: weight})
	}
	return GateDecision{}, nil
}

// usage poda los hits vencidos y devuelve el peso acumulado en la ventana.
func (g *memoryAbuseGate) usage(key string, cutoff time.Time) int {
	entries := g.hits[key]
	kept := entries[:0]
	total := 0
	for _, h := range entries {
		if h.at.After(cutoff) {
			kept = append(kept, h)
			total += h.weight
		}
	}
	if len(kept) == 0 {
		delete(g.hits, key)
	} else {
		g.hits[key] = kept
	}
	return total
}

// pruneIdle descarta las claves sin hits dentro de la ventana, una vez por ventana.
func (g *memoryAbuseGate) pruneIdle(cutoff time.Time) {
	for key := range g.hits {
		g.usage(key, cutoff)
	}
}
