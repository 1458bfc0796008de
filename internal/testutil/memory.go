// Package testutil holds in-memory repositories for handler tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

type Users struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*users.User
}

func NewUsers(seed ...users.User) *Users {
	r := &Users{rows: map[uint]*users.User{}}
	for i := range seed {
		u := seed[i]
		_ = r.Create(context.Background(), &u)
	}
	return r
}

func (r *Users) Create(ctx context.Context, u *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = users.NormalizeEmail(u.Email)
	for _, existing := range r.rows {
		if existing.Email == u.Email {
			return fmt.Errorf("duplicate email %s", u.Email)
		}
	}
	if u.ID == 0 {
		r.nextID++
		u.ID = r.nextID
	} else if u.ID > r.nextID {
		r.nextID = u.ID
	}
	cp := *u
	r.rows[u.ID] = &cp
	return nil
}

func (r *Users) find(match func(*users.User) bool) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, users.ErrNotFound
}

func (r *Users) FindByID(ctx context.Context, id uint) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.ID == id })
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	email = users.NormalizeEmail(email)
	return r.find(func(u *users.User) bool { return u.Email == email })
}

func (r *Users) FindByGoogleSub(ctx context.Context, sub string) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.GoogleSub != nil && *u.GoogleSub == sub })
}

func (r *Users) FindByStripeCustomerID(ctx context.Context, id string) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.StripeCustomerID != nil && *u.StripeCustomerID == id })
}

func strOrNil(v interface{}) *string {
	switch s := v.(type) {
	case string:
		return &s
	case *string:
		return s
	}
	return nil
}

// Update applies the columns the service writes.
func (r *Users) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return users.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "entitlement_tier":
			u.EntitlementTier, _ = v.(string)
		case "subscription_provider":
			u.SubscriptionProvider = strOrNil(v)
		case "stripe_customer_id":
			u.StripeCustomerID = strOrNil(v)
		case "apple_original_transaction_id":
			u.AppleOriginalTransactionID = strOrNil(v)
		case "google_sub":
			u.GoogleSub = strOrNil(v)
		case "role":
			u.Role, _ = v.(string)
		default:
			return fmt.Errorf("unsupported column %q", k)
		}
	}
	return nil
}

func (r *Users) List(ctx context.Context) ([]users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]users.User, 0, len(r.rows))
	for _, u := range r.rows {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type Subscriptions struct {
	mu   sync.Mutex
	rows []subscriptions.Subscription
}

func NewSubscriptions(seed ...subscriptions.Subscription) *Subscriptions {
	return &Subscriptions{rows: append([]subscriptions.Subscription(nil), seed...)}
}

func (r *Subscriptions) ListByUser(ctx context.Context, userID uint) ([]subscriptions.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []subscriptions.Subscription
	for _, s := range r.rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *Subscriptions) FindByProviderRef(ctx context.Context, p subscriptions.Provider, ref string) (*subscriptions.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.Provider == p && s.ProviderSubscriptionID == ref {
			cp := s
			return &cp, nil
		}
	}
	return nil, subscriptions.ErrNotFound
}

func (r *Subscriptions) Upsert(ctx context.Context, s *subscriptions.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.rows {
		if existing.Provider == s.Provider && existing.ProviderSubscriptionID == s.ProviderSubscriptionID {
			s.ID = existing.ID
			s.UserID = existing.UserID
			r.rows[i] = *s
			return nil
		}
	}
	r.rows = append(r.rows, *s)
	return nil
}

type Plans struct {
	mu   sync.Mutex
	rows []plans.Plan
}

func NewPlans(seed ...plans.Plan) *Plans {
	return &Plans{rows: append([]plans.Plan(nil), seed...)}
}

func (r *Plans) FindByStripePriceID(ctx context.Context, priceID string) (*plans.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.StripePriceID == priceID {
			cp := p
			return &cp, nil
		}
	}
	return nil, plans.ErrNotFound
}

func (r *Plans) List(ctx context.Context, productID string) ([]plans.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []plans.Plan
	for _, p := range r.rows {
		if productID == "" || p.StripeProductID == productID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PriceEUR < out[j].PriceEUR })
	return out, nil
}

func (r *Plans) Upsert(ctx context.Context, p *plans.Plan) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.rows {
		if existing.StripePriceID == p.StripePriceID {
			if p.Tier == "" {
				p.Tier = existing.Tier
			}
			p.ID = existing.ID
			r.rows[i] = *p
			return false, nil
		}
	}
	if p.Tier == "" {
		p.Tier = string(plans.TierFree)
	}
	p.ID = uint(len(r.rows) + 1)
	r.rows = append(r.rows, *p)
	return true, nil
}
