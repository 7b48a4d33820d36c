// Package redact applies the visibility policy to a response graph.
//
// The applier walks every place an anonymous identity can appear:
//
//	members[].member                       (the proxy as a backer)
//	members[].member.createdByUser         (its owner)
//	orders[].fromCollective                (the proxy as payer)
//	orders[].fromCollective.createdByUser  (its owner)
//	orders[].createdByUser                 (the owner as acting user)
//	transactions[].createdByUser           (inherited from the order)
//
// and substitutes values per field. It works on a copy: the canonical graph
// passed in is never modified.
//
// HOW A PASS WORKS:
//  1. Resolve the viewer once: policy.Resolver.Session looks up the viewer's
//     memberships on the subject and its host and fixes a base role.
//  2. Deep-copy the graph.
//  3. Visit each path above. A node with no Shield is an ordinary member or
//     donor and is left alone. A shielded node asks the session for the
//     viewer's role towards that shield's owner (SELF if they are the
//     owner, the base role otherwise) and the rule table decides each field.
//
// Redaction sets fields to nil (JSON null) instead of deleting them, so every
// viewer gets a response of the same shape. The proxy name is the one
// exception: it becomes "anonymous" rather than null.
package redact

import (
	"context"
	"log/slog"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/graph"
	"github.com/sakif/donorshield/internal/model"
	"github.com/sakif/donorshield/internal/policy"
)

// Applier redacts collective graphs for a viewer.
type Applier struct {
	resolver *policy.Resolver
	logger   *slog.Logger
}

func NewApplier(resolver *policy.Resolver, logger *slog.Logger) *Applier {
	return &Applier{resolver: resolver, logger: logger}
}

// Redact returns a sanitized copy of g as seen by viewerID ("" for an
// unauthenticated request) on subject's page.
//
// The viewer's role is resolved once for the whole response. Every
// occurrence of the same anonymous owner therefore gets the same decision,
// wherever it sits in the graph.
//
// On any error (missing subject, failed lookup, cancelled context) Redact
// returns nil: a partially sanitized graph is never handed back.
func (a *Applier) Redact(ctx context.Context, g *graph.CollectiveGraph, viewerID string, subject *model.Collective) (*graph.CollectiveGraph, error) {
	if subject == nil {
		return nil, apperror.Configuration("redact: subject collective is required")
	}
	if g == nil {
		return nil, apperror.Configuration("redact: graph is required")
	}

	// ForRequest gives this response its own membership cache.
	sess, err := a.resolver.ForRequest().Session(ctx, viewerID, subject)
	if err != nil {
		return nil, err
	}
	// A public viewer triggers no lookups, so check cancellation here too.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := g.Clone()
	p := pass{sess: sess}

	p.collective(&out.Collective)
	for i := range out.Members {
		p.collective(out.Members[i].Member)
	}
	for i := range out.Orders {
		p.collective(out.Orders[i].FromCollective)
		p.user(out.Orders[i].CreatedByUser)
	}
	for i := range out.Transactions {
		p.user(out.Transactions[i].CreatedByUser)
	}

	a.logger.Debug("graph redacted",
		slog.String("collective", subject.ID),
		slog.String("role", sess.Base().String()),
		slog.Int("shielded", p.shielded),
	)
	return out, nil
}

// pass is one redaction walk over a single response. shielded counts the
// anonymous occurrences it met, for the debug log.
type pass struct {
	sess     *policy.Session
	shielded int
}

// collective redacts a proxy's name and slug, then its creator. The creator
// of a proxy is its owner and carries the same shield.
func (p *pass) collective(c *graph.CollectiveView) {
	if c == nil {
		return
	}
	if c.Shield != nil {
		p.shielded++
		role := p.sess.RoleFor(c.Shield.OwnerUserID)
		if !policy.CanRevealField(role, policy.FieldCollectiveName) {
			c.Name = model.AnonymousName
		}
		if !policy.CanRevealField(role, policy.FieldCollectiveSlug) {
			c.Slug = nil
		}
	}
	p.user(c.CreatedByUser)
}

// user redacts the owner's personal identity on a shielded occurrence.
func (p *pass) user(u *graph.UserView) {
	if u == nil || u.Shield == nil {
		return
	}
	role := p.sess.RoleFor(u.Shield.OwnerUserID)
	if !policy.CanRevealField(role, policy.FieldUserID) {
		u.ID = nil
	}
	if !policy.CanRevealField(role, policy.FieldUserFirstName) {
		u.FirstName = nil
	}
	if !policy.CanRevealField(role, policy.FieldUserLastName) {
		u.LastName = nil
	}
	if !policy.CanRevealField(role, policy.FieldUserEmail) {
		u.Email = nil
	}
}
