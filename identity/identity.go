// Package identity generates and persists the anonymous client identifier
// used to attribute unauthenticated reactions and likes to a browser-like
// client instance.
package identity

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackblog/blogkit/observability"
)

// ClientIDKey is the store key under which the durable client id lives.
const ClientIDKey = "clientId"

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Store is the durable key/value capability backing identity and session
// persistence. Implementations must tolerate concurrent use.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Provider hands out a stable anonymous client id backed by a Store.
type Provider struct {
	store Store

	mu     sync.Mutex
	cached string
}

// NewProvider creates a provider over the given store.
func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// ClientID returns the persisted client id, generating and storing one on
// first use. When the store is unavailable it returns a fresh ephemeral id
// for this call only; callers must tolerate an identity that does not survive
// restarts.
func (p *Provider) ClientID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached
	}

	existing, ok, err := p.store.Get(ClientIDKey)
	if err != nil {
		observability.Log().Error("identity store read failed, using ephemeral id",
			observability.Field{Key: "error", Value: err})
		return ephemeralID()
	}
	if ok && strings.TrimSpace(existing) != "" {
		p.cached = existing
		return existing
	}

	generated := newClientID()
	if err := p.store.Set(ClientIDKey, generated); err != nil {
		observability.Log().Error("identity store write failed, using ephemeral id",
			observability.Field{Key: "error", Value: err})
		return ephemeralID()
	}
	p.cached = generated
	return generated
}

// newClientID combines a millisecond timestamp with a random suffix. Enough
// entropy to avoid collisions between concurrent anonymous visitors; not
// cryptographically secure and not meant to be.
func newClientID() string {
	return fmt.Sprintf("client_%d_%s", time.Now().UnixMilli(), randomSuffix(13))
}

func ephemeralID() string {
	return "ephemeral_" + uuid.NewString()
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}
