package policy

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/model"
	"github.com/sakif/donorshield/internal/repository"
)

// UserReader is the single user lookup the resolver performs: confirming
// that the viewer still exists.
type UserReader interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver computes a viewer's Role relative to a subject collective.
//
// FAILURE SEMANTICS:
//   - Missing data never upgrades privilege. No membership row means no
//     privilege; a viewer id that no longer resolves to a user is PUBLIC.
//   - Infrastructure errors are returned as apperror.ErrLookup. They are
//     never guessed into a role, in either direction.
type Resolver struct {
	users       UserReader
	memberships repository.MembershipReader
	logger      *slog.Logger
}

// NewResolver creates a Resolver over the given lookups.
func NewResolver(users UserReader, memberships repository.MembershipReader, logger *slog.Logger) *Resolver {
	return &Resolver{
		users:       users,
		memberships: memberships,
		logger:      logger,
	}
}

// ForRequest returns a Resolver whose membership lookups are memoized for
// the lifetime of one response. Do not keep it across requests: roles
// depend on the viewer.
func (r *Resolver) ForRequest() *Resolver {
	return &Resolver{
		users:       r.users,
		memberships: NewMembershipCache(r.memberships),
		logger:      r.logger,
	}
}

// ResolveRole returns the role of viewerID relative to subject, for an
// anonymous identity owned by targetOwnerUserID. An empty viewerID is an
// unauthenticated request.
//
// Precedence (first match wins):
//  1. no viewer, or a viewer that no longer exists → PUBLIC
//  2. viewer is the owner                          → SELF
//  3. viewer is ADMIN of subject                   → COLLECTIVE_ADMIN
//  4. viewer is ADMIN/HOST_ADMIN of subject's host → HOST_ADMIN
//  5. anyone else                                  → OTHER
func (r *Resolver) ResolveRole(ctx context.Context, viewerID string, subject *model.Collective, targetOwnerUserID string) (Role, error) {
	if subject == nil {
		return RolePublic, apperror.Configuration("policy: subject collective is required")
	}

	live, err := r.viewerExists(ctx, viewerID)
	if err != nil {
		return RolePublic, err
	}
	if !live {
		return RolePublic, nil
	}
	if targetOwnerUserID != "" && viewerID == targetOwnerUserID {
		return RoleSelf, nil
	}
	return r.baseRole(ctx, viewerID, subject)
}

// Session resolves everything about (viewer, subject) that does not depend
// on which anonymous owner is being rendered. One Session serves a whole
// response, so every occurrence of the same owner gets the same decision.
func (r *Resolver) Session(ctx context.Context, viewerID string, subject *model.Collective) (*Session, error) {
	if subject == nil {
		return nil, apperror.Configuration("policy: subject collective is required")
	}

	live, err := r.viewerExists(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !live {
		r.logger.Debug("viewer role resolved",
			slog.String("collective", subject.ID),
			slog.String("role", RolePublic.String()),
		)
		return &Session{base: RolePublic}, nil
	}

	base, err := r.baseRole(ctx, viewerID, subject)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("viewer role resolved",
		slog.String("collective", subject.ID),
		slog.String("role", base.String()),
	)
	return &Session{viewerID: viewerID, base: base}, nil
}

// viewerExists reports whether viewerID names a live user.
func (r *Resolver) viewerExists(ctx context.Context, viewerID string) (bool, error) {
	if viewerID == "" {
		return false, nil
	}
	if _, err := r.users.GetUserByID(ctx, viewerID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Deleted account: treat the token as anonymous.
			return false, nil
		}
		return false, apperror.LookupFailed("user", viewerID, err)
	}
	return true, nil
}

// baseRole runs checks 3–5 for an authenticated, live viewer.
//
// The subject and host lookups are independent, so they are issued
// concurrently. errgroup cancels the sibling lookup as soon as one fails.
func (r *Resolver) baseRole(ctx context.Context, viewerID string, subject *model.Collective) (Role, error) {
	var direct, host *model.Membership

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := r.memberships.GetMembership(gctx, viewerID, subject.ID)
		if err != nil {
			return apperror.LookupFailed("membership", viewerID+"/"+subject.ID, err)
		}
		direct = m
		return nil
	})
	if subject.HostCollectiveID != "" {
		g.Go(func() error {
			m, err := r.memberships.GetMembership(gctx, viewerID, subject.HostCollectiveID)
			if err != nil {
				return apperror.LookupFailed("membership", viewerID+"/"+subject.HostCollectiveID, err)
			}
			host = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RolePublic, err
	}

	switch {
	case direct != nil && direct.Role == model.MemberRoleAdmin:
		return RoleCollectiveAdmin, nil
	case host != nil && (host.Role == model.MemberRoleAdmin || host.Role == model.MemberRoleHostAdmin):
		return RoleHostAdmin, nil
	default:
		return RoleOther, nil
	}
}

// Session is the request-scoped result of role resolution.
type Session struct {
	viewerID string // empty for PUBLIC sessions
	base     Role
}

// RoleFor returns the viewer's role for an identity owned by ownerUserID.
// Only the SELF rule depends on the owner; everything else was settled when
// the session was created.
func (s *Session) RoleFor(ownerUserID string) Role {
	if s.viewerID != "" && ownerUserID != "" && s.viewerID == ownerUserID {
		return RoleSelf
	}
	return s.base
}

// Base is the role for identities the viewer does not own.
func (s *Session) Base() Role {
	return s.base
}
