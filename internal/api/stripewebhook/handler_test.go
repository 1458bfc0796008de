package stripewebhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"pipevault/internal/domain/billing"
	"pipevault/internal/domain/plans"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
	"pipevault/internal/testutil"
)

const whsec = "whsec_test"

type fixture struct {
	users  *testutil.Users
	subs   *testutil.Subscriptions
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := testutil.NewUsers(users.User{ID: 1, Email: "pat@example.com"})
	subs := testutil.NewSubscriptions()
	catalogue := testutil.NewPlans(
		plans.Plan{StripePriceID: "price_pro", Tier: "pro"},
		plans.Plan{StripePriceID: "price_premium", Tier: "premium"},
	)
	h := NewHandler(whsec, repo, subs, catalogue, billing.NewSyncer(repo, subs, nil), nil)

	r := gin.New()
	r.POST("/webhook", h.StripeWebhook)
	return &fixture{users: repo, subs: subs, router: r}
}

func sign(payload string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(whsec))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func (f *fixture) send(eventType, object string) *httptest.ResponseRecorder {
	payload := fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"data":{"object":%s}}`, eventType, object)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", sign(payload, time.Now()))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func subscriptionObject(status, price, userID string) string {
	return fmt.Sprintf(`{
		"id": "sub_1", "object": "subscription", "status": %q, "customer": "cus_1",
		"current_period_end": 1798761600, "start_date": 1767225600,
		"metadata": {"user_id": %q},
		"items": {"object": "list", "data": [{"id": "si_1", "price": {"id": %q}}]}
	}`, status, userID, price)
}

func TestWebhook_SubscriptionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.send("customer.subscription.created", subscriptionObject("trialing", "price_premium", "1"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "received")

	u, err := f.users.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "premium", u.EntitlementTier)
	require.Equal(t, "stripe", *u.SubscriptionProvider)
	require.Equal(t, "cus_1", *u.StripeCustomerID)

	stored, err := f.subs.FindByProviderRef(ctx, subscriptions.ProviderStripe, "sub_1")
	require.NoError(t, err)
	require.Equal(t, "trialing", stored.Status)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *stored.StartedAt)

	// upgrade found by customer id alone
	w = f.send("customer.subscription.updated", subscriptionObject("active", "price_pro", ""))
	require.Equal(t, http.StatusOK, w.Code)
	u, _ = f.users.FindByID(ctx, 1)
	require.Equal(t, "pro", u.EntitlementTier)

	w = f.send("customer.subscription.deleted", subscriptionObject("canceled", "price_pro", "1"))
	require.Equal(t, http.StatusOK, w.Code)
	u, _ = f.users.FindByID(ctx, 1)
	require.Equal(t, "free", u.EntitlementTier)

	all, _ := f.subs.ListByUser(ctx, 1)
	require.Len(t, all, 1)
}

func TestWebhook_UnknownUserIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	w := f.send("customer.subscription.updated", subscriptionObject("active", "price_pro", "99"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "skipped")
}

func TestWebhook_CheckoutLinksCustomer(t *testing.T) {
	f := newFixture(t)
	w := f.send("checkout.session.completed", `{"id":"cs_1","object":"checkout.session","customer":"cus_9","client_reference_id":"1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	u, _ := f.users.FindByID(context.Background(), 1)
	require.Equal(t, "cus_9", *u.StripeCustomerID)
}

func TestWebhook_IgnoresOtherEvents(t *testing.T) {
	f := newFixture(t)
	w := f.send("invoice.paid", `{"id":"in_1","object":"invoice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ignored")
}

func TestWebhook_BadSignature(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
