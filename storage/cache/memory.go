package cache

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/feeportal/core/user"
)

// MemoryRevoker keeps revoked token ids in process, for single-instance deployments and tests.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
	nowFunc func() time.Time
}

var _ user.Revoker = (*MemoryRevoker)(nil)

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), nowFunc: time.Now}
}

func (r *MemoryRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	r.revoked[tokenID] = now.Add(ttl)

	// drop expired entries
	for id, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, id)
		}
	}
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[tokenID]
	return ok && exp.After(r.nowFunc()), nil
}
