// Package graph holds the response graph rendered for a collective page:
// the collective, its members, the orders it received and its ledger.
//
// Nodes use *string for every scalar that redaction may null out. A
// redacted node keeps its full shape, and JSON shows "firstName": null
// rather than dropping the key.
//
// Each node that can expose an anonymous donor carries a Shield (not
// serialized). The builder sets it when the occurrence is reached through an
// anonymous proxy, so the redactor never has to re-derive anonymity from
// strings.
package graph

import "github.com/sakif/donorshield/internal/model"

// Shield marks an occurrence that belongs to an anonymous proxy.
// OwnerUserID is the real user behind the proxy.
//
// WHERE SHIELDS COME FROM:
//   - A collective view gets one when the collective is an anonymous proxy.
//   - Its createdByUser shares it (a proxy's creator is its owner).
//   - An order's createdByUser takes the shield of the order's payer.
//   - A transaction's createdByUser takes the shield of its order's payer,
//     even when that order belongs to another collective's page.
//
// Shields are copied with the graph and never serialized.
type Shield struct {
	ProxyID     string
	OwnerUserID string
}

// UserView is a user as it appears inside a page. Every field that can be
// redacted is a pointer.
type UserView struct {
	ID        *string `json:"id"`
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`

	Shield *Shield `json:"-"`
}

// CollectiveView is a collective (or a user's own profile, for a direct
// membership) as it appears inside a page. Name is never nulled: a redacted
// proxy shows "anonymous" instead.
type CollectiveView struct {
	ID            string               `json:"id"`
	Slug          *string              `json:"slug"`
	Name          string               `json:"name"`
	Type          model.CollectiveType `json:"type"`
	CreatedByUser *UserView            `json:"createdByUser"`

	Shield *Shield `json:"-"`
}

// MemberView is one membership of the subject collective.
type MemberView struct {
	ID     string           `json:"id"`
	Role   model.MemberRole `json:"role"`
	Member *CollectiveView  `json:"member"`
}

// OrderView is an order received by the subject collective.
type OrderView struct {
	ID             string          `json:"id"`
	Description    string          `json:"description"`
	TotalAmount    int64           `json:"totalAmount"`
	Currency       string          `json:"currency"`
	CreatedByUser  *UserView       `json:"createdByUser"`
	FromCollective *CollectiveView `json:"fromCollective"`
}

// TransactionView is a row of the subject collective's ledger.
type TransactionView struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"orderId"`
	Description   string    `json:"description"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	CreatedByUser *UserView `json:"createdByUser"`
}

// CollectiveGraph is the whole response for one collective.
type CollectiveGraph struct {
	Collective   CollectiveView    `json:"collective"`
	Members      []MemberView      `json:"members"`
	Orders       []OrderView       `json:"orders"`
	Transactions []TransactionView `json:"transactions"`
}

func strPtr(s string) *string {
	return &s
}

// NewUserView renders u with every field present.
func NewUserView(u *model.User, shield *Shield) *UserView {
	return &UserView{
		ID:        strPtr(u.ID),
		Email:     strPtr(u.Email),
		FirstName: strPtr(u.FirstName),
		LastName:  strPtr(u.LastName),
		Shield:    shield,
	}
}

// Clone returns a deep copy. Nothing in the copy aliases g.
func (g *CollectiveGraph) Clone() *CollectiveGraph {
	out := &CollectiveGraph{
		Collective: *g.Collective.clone(),
	}
	if g.Members != nil {
		out.Members = make([]MemberView, len(g.Members))
		for i, m := range g.Members {
			m.Member = m.Member.clone()
			out.Members[i] = m
		}
	}
	if g.Orders != nil {
		out.Orders = make([]OrderView, len(g.Orders))
		for i, o := range g.Orders {
			o.CreatedByUser = o.CreatedByUser.clone()
			o.FromCollective = o.FromCollective.clone()
			out.Orders[i] = o
		}
	}
	if g.Transactions != nil {
		out.Transactions = make([]TransactionView, len(g.Transactions))
		for i, tx := range g.Transactions {
			tx.CreatedByUser = tx.CreatedByUser.clone()
			out.Transactions[i] = tx
		}
	}
	return out
}

func (c *CollectiveView) clone() *CollectiveView {
	if c == nil {
		return nil
	}
	out := *c
	out.Slug = cloneStr(c.Slug)
	out.CreatedByUser = c.CreatedByUser.clone()
	out.Shield = c.Shield.clone()
	return &out
}

func (u *UserView) clone() *UserView {
	if u == nil {
		return nil
	}
	return &UserView{
		ID:        cloneStr(u.ID),
		Email:     cloneStr(u.Email),
		FirstName: cloneStr(u.FirstName),
		LastName:  cloneStr(u.LastName),
		Shield:    u.Shield.clone(),
	}
}

func (s *Shield) clone() *Shield {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
