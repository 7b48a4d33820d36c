package policy

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/donorshield/internal/model"
	"github.com/sakif/donorshield/internal/repository"
)

// MembershipCache memoizes membership lookups for one response.
//
// Concurrent identical lookups are collapsed with singleflight, and a
// finished answer (including "no membership") is remembered. Errors are not
// remembered: a failed lookup fails the response anyway.
type MembershipCache struct {
	next  repository.MembershipReader
	group singleflight.Group

	mu   sync.Mutex
	memo map[string]*model.Membership
}

var _ repository.MembershipReader = (*MembershipCache)(nil)

// NewMembershipCache wraps next with a request-scoped memo.
func NewMembershipCache(next repository.MembershipReader) *MembershipCache {
	return &MembershipCache{
		next: next,
		memo: make(map[string]*model.Membership),
	}
}

// GetMembership implements repository.MembershipReader.
func (c *MembershipCache) GetMembership(ctx context.Context, userID, collectiveID string) (*model.Membership, error) {
	key := userID + "\x00" + collectiveID

	c.mu.Lock()
	m, ok := c.memo[key]
	c.mu.Unlock()
	if ok {
		return m, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		m, err := c.next.GetMembership(ctx, userID, collectiveID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.memo[key] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Membership), nil
}
