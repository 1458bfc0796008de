package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"pipevault/internal/domain/billing"
	"pipevault/internal/domain/users"
	"pipevault/internal/testutil"
)

func TestImportSubscriptions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := testutil.NewUsers(users.User{Email: "legacy@example.com", EntitlementTier: "free"})
	subs := testutil.NewSubscriptions()
	h := NewImporter(repo, billing.NewSyncer(repo, subs, nil), nil)

	r := gin.New()
	r.POST("/admin/subscriptions/import", h.ImportSubscriptions)

	body := `{
		"email": "Legacy@Example.com",
		"records": [
			{"appleOriginalTransactionId": "1000001", "stripeCustomerId": "cus_old",
			 "subscriptionId": "sub_old", "status": "active", "tier": "Pro",
			 "currentPeriodEnd": "2099-01-01T00:00:00Z"},
			{"subscription_provider": "apple", "status": "active", "tier": "premium",
			 "subscriptionId": "apple_1"},
			{"status": "active"}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/admin/subscriptions/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Imported int            `json:"imported"`
		Results  []ImportResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, 1, out.Imported)
	require.Len(t, out.Results, 3)

	// the customer id beats the transaction id when the provider is missing
	require.Equal(t, "stripe", out.Results[0].Provider)
	require.True(t, out.Results[0].Inferred)
	require.Empty(t, out.Results[0].Error)

	require.Contains(t, out.Results[1].Error, "apple_original_transaction_id")
	require.Contains(t, out.Results[2].Error, "no provider")

	u, err := repo.FindByEmail(req.Context(), "legacy@example.com")
	require.NoError(t, err)
	require.Equal(t, "pro", u.EntitlementTier)
	require.Equal(t, "stripe", *u.SubscriptionProvider)
	require.Equal(t, "cus_old", *u.StripeCustomerID)
}

func TestImportSubscriptions_UnknownUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := testutil.NewUsers()
	h := NewImporter(repo, billing.NewSyncer(repo, testutil.NewSubscriptions(), nil), nil)

	r := gin.New()
	r.POST("/import", h.ImportSubscriptions)
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(`{"email":"x@example.com","records":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
