package model

import (
	"fmt"
	"time"
)

// AnonymousName is the display name every anonymous proxy is rendered with.
// No viewer, the owner included, ever sees a proxy's stored name.
const AnonymousName = "anonymous"

// CollectiveType is the storage and wire form of a collective variant.
type CollectiveType string

const (
	CollectiveStandard       CollectiveType = "STANDARD"
	CollectiveAnonymousProxy CollectiveType = "ANONYMOUS_PROXY"
	CollectiveHost           CollectiveType = "HOST"
)

// Variant is the closed set of collective kinds.
//
// SEALED INTERFACE:
// The unexported isVariant method means only this package can add variants.
// Code that needs to treat anonymous proxies specially does a type switch
// (or calls AsAnonymousProxy) instead of comparing type strings at each call
// site, so the anonymity branch cannot be forgotten by a typo.
type Variant interface {
	Type() CollectiveType
	isVariant()
}

// Standard is an ordinary collective (a project, an organisation, a profile).
type Standard struct{}

// AnonymousProxy shields a real user's identity when donating.
// OwnerUserID is fixed at creation and never changes.
type AnonymousProxy struct {
	OwnerUserID string
}

// Host provides fiscal sponsorship to other collectives.
type Host struct{}

func (Standard) Type() CollectiveType       { return CollectiveStandard }
func (AnonymousProxy) Type() CollectiveType { return CollectiveAnonymousProxy }
func (Host) Type() CollectiveType           { return CollectiveHost }

func (Standard) isVariant()       {}
func (AnonymousProxy) isVariant() {}
func (Host) isVariant()           {}

// ParseVariant rebuilds a Variant from its stored form.
// An ANONYMOUS_PROXY row without an owner is corrupt and is rejected.
func ParseVariant(t CollectiveType, ownerUserID string) (Variant, error) {
	switch t {
	case CollectiveStandard:
		return Standard{}, nil
	case CollectiveHost:
		return Host{}, nil
	case CollectiveAnonymousProxy:
		if ownerUserID == "" {
			return nil, fmt.Errorf("model: anonymous proxy without owner")
		}
		return AnonymousProxy{OwnerUserID: ownerUserID}, nil
	default:
		return nil, fmt.Errorf("model: unknown collective type %q", t)
	}
}

// Collective is an account that can send or receive funds.
type Collective struct {
	ID               string    `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	Currency         string    `json:"currency"`
	HostCollectiveID string    `json:"hostCollectiveId,omitempty"` // empty when not hosted
	CreatedByUserID  string    `json:"createdByUserId"`
	Variant          Variant   `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Type returns the collective's variant tag. A collective built without a
// Variant is treated as STANDARD.
func (c *Collective) Type() CollectiveType {
	if c.Variant == nil {
		return CollectiveStandard
	}
	return c.Variant.Type()
}

// AsAnonymousProxy returns the proxy variant and true when c shields a donor.
func (c *Collective) AsAnonymousProxy() (AnonymousProxy, bool) {
	p, ok := c.Variant.(AnonymousProxy)
	return p, ok
}

// OwnerUserID returns the owning user of an anonymous proxy, or "".
func (c *Collective) OwnerUserID() string {
	if p, ok := c.AsAnonymousProxy(); ok {
		return p.OwnerUserID
	}
	return ""
}

// NewAnonymousProxy builds the proxy collective owned by user.
// The owner is also the creator, and the stored name is the sentinel so
// nothing identifying is persisted on the proxy itself.
func NewAnonymousProxy(owner *User, slug, currency string) *Collective {
	return &Collective{
		Slug:            slug,
		Name:            AnonymousName,
		Currency:        currency,
		CreatedByUserID: owner.ID,
		Variant:         AnonymousProxy{OwnerUserID: owner.ID},
	}
}
