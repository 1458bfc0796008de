package stripe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sc "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
)

var ErrNotConfigured = errors.New("stripe key not configured")

// Client is the thin slice of the Stripe API this service needs.
type Client struct {
	api *client.API
}

func NewClient(secretKey string) (*Client, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, ErrNotConfigured
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api}, nil
}

// ActivePriceIDs returns the price ids on the customer's active or trialing
// subscriptions.
func (c *Client) ActivePriceIDs(ctx context.Context, customerID string) ([]string, error) {
	params := &sc.SubscriptionListParams{
		Customer: sc.String(customerID),
		Status:   sc.String("all"),
	}
	params.Context = ctx

	var out []string
	it := c.api.Subscriptions.List(params)
	for it.Next() {
		s := it.Subscription()
		if !IsEntitling(string(s.Status)) || s.Items == nil {
			continue
		}
		for _, item := range s.Items.Data {
			if item.Price != nil && item.Price.ID != "" {
				out = append(out, item.Price.ID)
			}
		}
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions for %s: %w", customerID, err)
	}
	return out, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &sc.BillingPortalSessionParams{
		Customer:  sc.String(customerID),
		ReturnURL: sc.String(returnURL),
	}
	params.Context = ctx

	s, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return s.URL, nil
}

// CreateCustomer creates a customer tagged with the local user id.
func (c *Client) CreateCustomer(ctx context.Context, email string, userID uint, env string) (string, error) {
	params := &sc.CustomerParams{
		Email: sc.String(email),
		Metadata: map[string]string{
			"user_id": strconv.FormatUint(uint64(userID), 10),
			"app_env": env,
		},
	}
	params.Context = ctx

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cus.ID, nil
}

type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	UserID     uint
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutSession starts a subscription checkout. The user id rides
// along in the subscription metadata so webhooks can find the account.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	uid := strconv.FormatUint(uint64(req.UserID), 10)
	params := &sc.CheckoutSessionParams{
		SuccessURL: sc.String(req.SuccessURL),
		CancelURL:  sc.String(req.CancelURL),
		Mode:       sc.String(string(sc.CheckoutSessionModeSubscription)),
		Customer:   sc.String(req.CustomerID),
		LineItems: []*sc.CheckoutSessionLineItemParams{
			{Price: sc.String(req.PriceID), Quantity: sc.Int64(1)},
		},
		ClientReferenceID: sc.String(uid),
		SubscriptionData: &sc.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": uid},
		},
	}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}

// Price is a recurring catalogue price.
type Price struct {
	ID          string
	ProductID   string
	ProductName string
	Currency    string
	UnitAmount  int64
	Interval    string
	Metadata    map[string]string
}

// Tier is the price's "tier" metadata, or "plan" for prices created before
// the tier key existed.
func (p Price) Tier() string {
	if v := p.Metadata["tier"]; v != "" {
		return v
	}
	return p.Metadata["plan"]
}

func (p Price) Hidden() bool {
	return p.Metadata["visible"] == "false"
}

// ListRecurringPrices lists active recurring prices of active products. An
// empty productID lists every product.
func (c *Client) ListRecurringPrices(ctx context.Context, productID string) ([]Price, error) {
	params := &sc.PriceListParams{
		Active: sc.Bool(true),
		Type:   sc.String("recurring"),
	}
	params.Context = ctx
	params.AddExpand("data.product")

	var out []Price
	it := c.api.Prices.List(params)
	for it.Next() {
		p := it.Price()
		if !p.Active || p.Recurring == nil || p.Product == nil || !p.Product.Active {
			continue
		}
		if productID != "" && p.Product.ID != productID {
			continue
		}
		out = append(out, Price{
			ID:          p.ID,
			ProductID:   p.Product.ID,
			ProductName: p.Product.Name,
			Currency:    string(p.Currency),
			UnitAmount:  p.UnitAmount,
			Interval:    string(p.Recurring.Interval),
			Metadata:    p.Metadata,
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return out, nil
}

// ConstructEvent verifies a webhook payload against its signature header.
func ConstructEvent(payload []byte, signature, secret string) (sc.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}

// SubscriptionSnapshot is the part of a Stripe subscription object the
// webhook ingest stores.
type SubscriptionSnapshot struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	CurrentPeriodEnd time.Time
	StartedAt        time.Time
	UserID           uint
}

func SnapshotFromSubscription(s *sc.Subscription) (SubscriptionSnapshot, error) {
	if s == nil || s.ID == "" {
		return SubscriptionSnapshot{}, errors.New("subscription missing id")
	}

	snap := SubscriptionSnapshot{
		ID:     s.ID,
		Status: NormalizeStatus(string(s.Status)),
		UserID: userIDFromMetadata(s.Metadata),
	}
	if s.Customer != nil {
		snap.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		snap.PriceID = s.Items.Data[0].Price.ID
	}
	if s.CurrentPeriodEnd > 0 {
		snap.CurrentPeriodEnd = time.Unix(s.CurrentPeriodEnd, 0).UTC()
	}
	if s.StartDate > 0 {
		snap.StartedAt = time.Unix(s.StartDate, 0).UTC()
	}
	return snap, nil
}

func userIDFromMetadata(md map[string]string) uint {
	s := md["user_id"]
	if s == "" {
		return 0
	}
	uid, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid)
}
