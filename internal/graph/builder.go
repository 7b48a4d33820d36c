package graph

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/model"
)

// maxConcurrentLoads bounds the fan-out of per-entity lookups.
const maxConcurrentLoads = 8

// Source is everything the builder reads.
type Source interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetCollectiveByID(ctx context.Context, id string) (*model.Collective, error)
	GetCollectiveBySlug(ctx context.Context, slug string) (*model.Collective, error)
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	ListMembers(ctx context.Context, collectiveID string) ([]model.Membership, error)
	ListOrdersTo(ctx context.Context, collectiveID string) ([]model.Order, error)
	ListTransactions(ctx context.Context, collectiveID string) ([]model.Transaction, error)
}

// Builder assembles the canonical (unredacted) graph for a collective.
type Builder struct {
	src    Source
	logger *slog.Logger
}

func NewBuilder(src Source, logger *slog.Logger) *Builder {
	return &Builder{src: src, logger: logger}
}

// Build loads the collective identified by slug and everything its page
// shows. It returns the subject collective alongside the graph because the
// redactor needs it.
//
// LOADING STRATEGY:
//  1. The three lists (members, orders, transactions) are independent and
//     fetched concurrently.
//  2. A ledger row can belong to an order received by another collective
//     (a host's fee row, for instance). Those orders are loaded by id, since
//     a transaction's shield comes from its own order's payer.
//  3. Every collective and user they reference is collected into a set and
//     loaded once, so a donor appearing in ten orders costs one lookup.
//
// ERRORS:
// An unknown slug is apperror.ErrNotFound. Every other repository failure
// is wrapped with apperror.LookupFailed: the page cannot be rendered safely
// without the data, and the caller should retry rather than see a guess.
func (b *Builder) Build(ctx context.Context, slug string) (*model.Collective, *CollectiveGraph, error) {
	subject, err := b.src.GetCollectiveBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, apperror.LookupFailed("collective", slug, err)
	}

	var (
		members []model.Membership
		orders  []model.Order
		txs     []model.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		members, err = b.src.ListMembers(gctx, subject.ID)
		return wrapList("members", subject.ID, err)
	})
	g.Go(func() (err error) {
		orders, err = b.src.ListOrdersTo(gctx, subject.ID)
		return wrapList("orders", subject.ID, err)
	})
	g.Go(func() (err error) {
		txs, err = b.src.ListTransactions(gctx, subject.ID)
		return wrapList("transactions", subject.ID, err)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Orders behind ledger rows that are not on this page.
	onPage := make(map[string]bool, len(orders))
	for _, o := range orders {
		onPage[o.ID] = true
	}
	foreignIDs := newIDSet()
	for _, tx := range txs {
		if !onPage[tx.OrderID] {
			foreignIDs.add(tx.OrderID)
		}
	}
	foreignOrders, err := loadAll(ctx, "order", foreignIDs.ids, b.src.GetOrderByID)
	if err != nil {
		return nil, nil, err
	}

	collectiveIDs := newIDSet()
	for _, m := range members {
		collectiveIDs.add(m.MemberCollectiveID)
	}
	for _, o := range orders {
		collectiveIDs.add(o.FromCollectiveID)
	}
	for _, id := range foreignIDs.ids {
		if o, ok := foreignOrders[id]; ok {
			collectiveIDs.add(o.FromCollectiveID)
		}
	}
	collectives, err := loadAll(ctx, "collective", collectiveIDs.ids, b.src.GetCollectiveByID)
	if err != nil {
		return nil, nil, err
	}
	collectives[subject.ID] = subject

	userIDs := newIDSet()
	for _, c := range collectives {
		userIDs.add(c.CreatedByUserID)
	}
	for _, m := range members {
		if m.MemberCollectiveID == "" {
			userIDs.add(m.UserID)
		}
	}
	for _, o := range orders {
		userIDs.add(o.CreatedByUserID)
	}
	for _, tx := range txs {
		userIDs.add(tx.CreatedByUserID)
	}
	users, err := loadAll(ctx, "user", userIDs.ids, b.src.GetUserByID)
	if err != nil {
		return nil, nil, err
	}

	a := assembler{subject: subject, collectives: collectives, users: users}
	out := &CollectiveGraph{
		Collective:   *a.collectiveView(subject.ID),
		Members:      make([]MemberView, 0, len(members)),
		Orders:       make([]OrderView, 0, len(orders)),
		Transactions: make([]TransactionView, 0, len(txs)),
	}

	for _, m := range members {
		out.Members = append(out.Members, a.memberView(m))
	}

	orderShields := make(map[string]*Shield, len(orders)+len(foreignOrders))
	for _, o := range orders {
		ov := a.orderView(o)
		if ov.FromCollective != nil {
			orderShields[o.ID] = ov.FromCollective.Shield
		}
		out.Orders = append(out.Orders, ov)
	}
	for _, id := range foreignIDs.ids {
		o, ok := foreignOrders[id]
		if !ok {
			continue
		}
		if _, loaded := collectives[o.FromCollectiveID]; loaded {
			orderShields[id] = a.shieldOf(o.FromCollectiveID)
		}
	}

	for _, tx := range txs {
		shield, known := orderShields[tx.OrderID]
		if !known {
			// The order is gone or its payer could not be loaded: fall back
			// to the creator, so an owner seen behind a proxy anywhere here
			// stays shielded.
			shield = a.ownerShields[tx.CreatedByUserID]
		}
		out.Transactions = append(out.Transactions, TransactionView{
			ID:            tx.ID,
			OrderID:       tx.OrderID,
			Description:   tx.Description,
			Amount:        tx.Amount,
			Currency:      tx.Currency,
			CreatedByUser: a.userView(tx.CreatedByUserID, shield),
		})
	}

	b.logger.Debug("collective graph built",
		slog.String("collective", subject.ID),
		slog.Int("members", len(out.Members)),
		slog.Int("orders", len(out.Orders)),
		slog.Int("foreign_orders", len(foreignOrders)),
		slog.Int("transactions", len(out.Transactions)),
	)
	return subject, out, nil
}

// assembler turns loaded entities into view nodes.
//
// It only reads the maps filled by Build, so rendering never does I/O. An
// id missing from a map means the entity was not found; its view is nil.
type assembler struct {
	subject      *model.Collective
	collectives  map[string]*model.Collective
	users        map[string]*model.User
	ownerShields map[string]*Shield // owner user id → shield of a proxy they own
}

func (a *assembler) userView(id string, shield *Shield) *UserView {
	u, ok := a.users[id]
	if !ok {
		return nil
	}
	return NewUserView(u, shield)
}

// shieldOf returns the shield for collective id, or nil when it is not an
// anonymous proxy (or was not loaded). It also records the shield under the
// proxy's owner for the ledger fallback.
func (a *assembler) shieldOf(id string) *Shield {
	c, ok := a.collectives[id]
	if !ok {
		return nil
	}
	p, ok := c.AsAnonymousProxy()
	if !ok {
		return nil
	}
	shield := &Shield{ProxyID: c.ID, OwnerUserID: p.OwnerUserID}
	if a.ownerShields == nil {
		a.ownerShields = make(map[string]*Shield)
	}
	a.ownerShields[p.OwnerUserID] = shield
	return shield
}

func (a *assembler) collectiveView(id string) *CollectiveView {
	c, ok := a.collectives[id]
	if !ok {
		return nil
	}
	shield := a.shieldOf(id)
	return &CollectiveView{
		ID:            c.ID,
		Slug:          strPtr(c.Slug),
		Name:          c.Name,
		Type:          c.Type(),
		CreatedByUser: a.userView(c.CreatedByUserID, shield),
		Shield:        shield,
	}
}

// profileView renders a user's own profile for a direct membership.
func (a *assembler) profileView(userID string) *CollectiveView {
	u, ok := a.users[userID]
	if !ok {
		return nil
	}
	return &CollectiveView{
		ID:            u.ID,
		Slug:          strPtr(u.Slug),
		Name:          u.FullName(),
		Type:          model.CollectiveStandard,
		CreatedByUser: NewUserView(u, nil),
	}
}

// memberView picks what a membership is shown as:
//
//	member collective set     → that collective (a proxy, a host)
//	owner of this proxy page  → the proxy itself, never the owner's profile
//	otherwise                 → the user's own profile
func (a *assembler) memberView(m model.Membership) MemberView {
	mv := MemberView{ID: m.ID, Role: m.Role}
	switch {
	case m.MemberCollectiveID != "":
		mv.Member = a.collectiveView(m.MemberCollectiveID)
	case a.subject.OwnerUserID() != "" && m.UserID == a.subject.OwnerUserID():
		// The owner of an anonymous subject appears as the subject itself.
		mv.Member = a.collectiveView(a.subject.ID)
	default:
		mv.Member = a.profileView(m.UserID)
	}
	return mv
}

func (a *assembler) orderView(o model.Order) OrderView {
	from := a.collectiveView(o.FromCollectiveID)
	var shield *Shield
	if from != nil {
		shield = from.Shield
	}
	return OrderView{
		ID:             o.ID,
		Description:    o.Description,
		TotalAmount:    o.Amount,
		Currency:       o.Currency,
		CreatedByUser:  a.userView(o.CreatedByUserID, shield),
		FromCollective: from,
	}
}

// wrapList turns a list failure into a LookupFailure naming the collective.
func wrapList(what, collectiveID string, err error) error {
	if err != nil {
		return apperror.LookupFailed(what+" of collective", collectiveID, err)
	}
	return nil
}

// idSet keeps insertion order so loads are deterministic.
type idSet struct {
	seen map[string]struct{}
	ids  []string
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[string]struct{})}
}

func (s *idSet) add(id string) {
	if id == "" {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

// loadAll fetches every id concurrently. A NotFound entity is left out of
// the result (the view renders it as null); any other error aborts the page
// as a LookupFailure on resource.
func loadAll[V any](ctx context.Context, resource string, ids []string, fetch func(context.Context, string) (*V, error)) (map[string]*V, error) {
	out := make(map[string]*V, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for _, id := range ids {
		g.Go(func() error {
			v, err := fetch(gctx, id)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					return nil
				}
				return apperror.LookupFailed(resource, id, err)
			}
			mu.Lock()
			out[id] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
