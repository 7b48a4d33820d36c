// Package seed loads a demo scenario from YAML into a repository.
//
// FILE FORMAT:
//
//	users:
//	  - key: owner
//	    email: user@example.com
//	    firstName: u
//	    lastName: ser
//	    slug: user
//	    password: secret
//	collectives:
//	  - key: proxy
//	    slug: anonymous-u
//	    type: ANONYMOUS_PROXY   # STANDARD (default) | HOST | ANONYMOUS_PROXY
//	    owner: owner            # required for ANONYMOUS_PROXY, forbidden otherwise
//	    host: host              # optional, a collective key
//	    createdBy: admin        # ignored for proxies: the owner creates them
//	memberships:
//	  - user: owner
//	    collective: test
//	    role: BACKER
//	    via: proxy              # optional member collective
//	orders:
//	  - from: proxy
//	    to: test
//	    amount: 2000            # minor units
//	    createdBy: owner
//
// Keys are local to the file and link entries together; stored IDs are
// generated by the repository. Every order also gets its ledger
// transaction.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/auth"
	"github.com/sakif/donorshield/internal/model"
	"github.com/sakif/donorshield/internal/repository"
)

// Scenario is the parsed YAML file.
type Scenario struct {
	Users       []User       `yaml:"users"`
	Collectives []Collective `yaml:"collectives"`
	Memberships []Membership `yaml:"memberships"`
	Orders      []Order      `yaml:"orders"`
}

type User struct {
	Key       string `yaml:"key"`
	Email     string `yaml:"email"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Slug      string `yaml:"slug"`
	Password  string `yaml:"password"`
}

type Collective struct {
	Key       string               `yaml:"key"`
	Slug      string               `yaml:"slug"`
	Name      string               `yaml:"name"`
	Currency  string               `yaml:"currency"`
	Type      model.CollectiveType `yaml:"type"`
	Owner     string               `yaml:"owner"`
	Host      string               `yaml:"host"`
	CreatedBy string               `yaml:"createdBy"`
}

type Membership struct {
	User       string           `yaml:"user"`
	Collective string           `yaml:"collective"`
	Role       model.MemberRole `yaml:"role"`
	Via        string           `yaml:"via"`
}

type Order struct {
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	Amount      int64  `yaml:"amount"`
	Currency    string `yaml:"currency"`
	Description string `yaml:"description"`
	CreatedBy   string `yaml:"createdBy"`
}

const defaultCurrency = "USD"

// Parse decodes and validates a scenario. Unknown fields are rejected so a
// typo like "onwer" fails loudly instead of seeding an ownerless proxy.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperror.ValidationFailed("file", "scenario is empty")
		}
		return nil, fmt.Errorf("seed: decoding scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// ParseFile is Parse on a file path.
func ParseFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: opening %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

func (sc *Scenario) validate() error {
	users := make(map[string]bool, len(sc.Users))
	for i, u := range sc.Users {
		field := fmt.Sprintf("users[%d]", i)
		switch {
		case u.Key == "":
			return apperror.ValidationFailed(field+".key", "key is required")
		case users[u.Key]:
			return apperror.ValidationFailed(field+".key", "duplicate user key "+u.Key)
		case u.Email == "":
			return apperror.ValidationFailed(field+".email", "email is required")
		}
		users[u.Key] = true
	}

	colls := make(map[string]bool, len(sc.Collectives))
	for i, c := range sc.Collectives {
		field := fmt.Sprintf("collectives[%d]", i)
		if c.Key == "" {
			return apperror.ValidationFailed(field+".key", "key is required")
		}
		if colls[c.Key] {
			return apperror.ValidationFailed(field+".key", "duplicate collective key "+c.Key)
		}
		switch c.Type {
		case "", model.CollectiveStandard, model.CollectiveHost:
			if c.Owner != "" {
				return apperror.ValidationFailed(field+".owner", "only ANONYMOUS_PROXY collectives have an owner")
			}
			if !users[c.CreatedBy] {
				return apperror.ValidationFailed(field+".createdBy", "unknown user "+c.CreatedBy)
			}
		case model.CollectiveAnonymousProxy:
			if !users[c.Owner] {
				return apperror.ValidationFailed(field+".owner", "anonymous proxy needs a known owner")
			}
			if c.Name != "" {
				return apperror.ValidationFailed(field+".name", "anonymous proxies cannot be named")
			}
		default:
			return apperror.ValidationFailed(field+".type", fmt.Sprintf("unknown collective type %q", c.Type))
		}
		// Hosts must be declared before the collectives they host.
		if c.Host != "" && !colls[c.Host] {
			return apperror.ValidationFailed(field+".host", "unknown or later collective "+c.Host)
		}
		colls[c.Key] = true
	}

	for i, m := range sc.Memberships {
		field := fmt.Sprintf("memberships[%d]", i)
		switch {
		case !users[m.User]:
			return apperror.ValidationFailed(field+".user", "unknown user "+m.User)
		case !colls[m.Collective]:
			return apperror.ValidationFailed(field+".collective", "unknown collective "+m.Collective)
		case !m.Role.Valid():
			return apperror.ValidationFailed(field+".role", fmt.Sprintf("unknown role %q", m.Role))
		case m.Via != "" && !colls[m.Via]:
			return apperror.ValidationFailed(field+".via", "unknown collective "+m.Via)
		}
	}

	for i, o := range sc.Orders {
		field := fmt.Sprintf("orders[%d]", i)
		switch {
		case !colls[o.From]:
			return apperror.ValidationFailed(field+".from", "unknown collective "+o.From)
		case !colls[o.To]:
			return apperror.ValidationFailed(field+".to", "unknown collective "+o.To)
		case !users[o.CreatedBy]:
			return apperror.ValidationFailed(field+".createdBy", "unknown user "+o.CreatedBy)
		case o.Amount <= 0:
			return apperror.ValidationFailed(field+".amount", "amount must be positive")
		}
	}
	return nil
}

// Result maps scenario keys to the stored records.
type Result struct {
	Users       map[string]*model.User
	Collectives map[string]*model.Collective
	Orders      []*model.Order
}

// Apply writes sc into store. It stops at the first error and does not roll
// back; use ApplyInTx when the store can run a transaction. Passwords are hashed with passwords; an empty password leaves
// the account unable to log in.
func Apply(ctx context.Context, store repository.Store, passwords *auth.PasswordService, sc *Scenario) (*Result, error) {
	if err := sc.validate(); err != nil {
		return nil, err
	}
	res := &Result{
		Users:       make(map[string]*model.User, len(sc.Users)),
		Collectives: make(map[string]*model.Collective, len(sc.Collectives)),
	}

	for _, su := range sc.Users {
		u := &model.User{
			Email:     strings.ToLower(strings.TrimSpace(su.Email)),
			FirstName: su.FirstName,
			LastName:  su.LastName,
			Slug:      su.Slug,
		}
		if su.Password != "" {
			hash, err := passwords.Hash(su.Password)
			if err != nil {
				return nil, fmt.Errorf("seed: user %s: %w", su.Key, err)
			}
			u.PasswordHash = hash
		}
		if err := store.CreateUser(ctx, u); err != nil {
			return nil, fmt.Errorf("seed: user %s: %w", su.Key, err)
		}
		res.Users[su.Key] = u
	}

	for _, entry := range sc.Collectives {
		currency := entry.Currency
		if currency == "" {
			currency = defaultCurrency
		}

		var c *model.Collective
		if entry.Type == model.CollectiveAnonymousProxy {
			c = model.NewAnonymousProxy(res.Users[entry.Owner], entry.Slug, currency)
		} else {
			v, err := model.ParseVariant(orStandard(entry.Type), "")
			if err != nil {
				return nil, fmt.Errorf("seed: collective %s: %w", entry.Key, err)
			}
			c = &model.Collective{
				Slug:            entry.Slug,
				Name:            entry.Name,
				Currency:        currency,
				CreatedByUserID: res.Users[entry.CreatedBy].ID,
				Variant:         v,
			}
		}
		if entry.Host != "" {
			c.HostCollectiveID = res.Collectives[entry.Host].ID
		}
		if err := store.CreateCollective(ctx, c); err != nil {
			return nil, fmt.Errorf("seed: collective %s: %w", entry.Key, err)
		}
		res.Collectives[entry.Key] = c
	}

	for i, sm := range sc.Memberships {
		m := &model.Membership{
			UserID:       res.Users[sm.User].ID,
			CollectiveID: res.Collectives[sm.Collective].ID,
			Role:         sm.Role,
		}
		if sm.Via != "" {
			m.MemberCollectiveID = res.Collectives[sm.Via].ID
		}
		if err := store.CreateMembership(ctx, m); err != nil {
			return nil, fmt.Errorf("seed: memberships[%d]: %w", i, err)
		}
	}

	for i, so := range sc.Orders {
		currency := so.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		o := &model.Order{
			FromCollectiveID: res.Collectives[so.From].ID,
			ToCollectiveID:   res.Collectives[so.To].ID,
			Amount:           so.Amount,
			Currency:         currency,
			Description:      so.Description,
			CreatedByUserID:  res.Users[so.CreatedBy].ID,
		}
		if err := store.CreateOrder(ctx, o); err != nil {
			return nil, fmt.Errorf("seed: orders[%d]: %w", i, err)
		}
		if err := store.CreateTransaction(ctx, model.NewTransactionForOrder(o)); err != nil {
			return nil, fmt.Errorf("seed: orders[%d] transaction: %w", i, err)
		}
		res.Orders = append(res.Orders, o)
	}

	return res, nil
}

// ApplyInTx runs Apply inside one transaction of tx, so a scenario is either
// fully loaded or not loaded at all. An apperror.ErrConflict from it means
// the database already holds records from the file (usually an earlier,
// complete load) and nothing was written.
func ApplyInTx(ctx context.Context, tx repository.Transactor, passwords *auth.PasswordService, sc *Scenario) (*Result, error) {
	var res *Result
	err := tx.InTx(ctx, func(st repository.Store) error {
		var err error
		res, err = Apply(ctx, st, passwords, sc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func orStandard(t model.CollectiveType) model.CollectiveType {
	if t == "" {
		return model.CollectiveStandard
	}
	return t
}
