package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"pipevault/internal/domain/access"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
	"pipevault/internal/testutil"
)

func serve(t *testing.T, svc access.Loader, email string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		if email != "" {
			c.Set("email", email)
		}
	}, NewHandler(svc).GetCurrentUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	return w
}

func TestGetCurrentUser_PremiumLegacyOnApple(t *testing.T) {
	apple := "apple"
	start := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)

	repo := testutil.NewUsers(users.User{ID: 4, Email: "pat@example.com", EntitlementTier: "premium", SubscriptionProvider: &apple})
	subs := testutil.NewSubscriptions(subscriptions.Subscription{
		UserID: 4, Provider: subscriptions.ProviderApple, ProviderSubscriptionID: "1000",
		Status: "active", Tier: "premium", StartedAt: &start, CurrentPeriodEnd: &end,
	})

	w := serve(t, access.NewService(repo, subs, nil, nil), "pat@example.com")
	require.Equal(t, http.StatusOK, w.Code)

	var resp MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "premium", resp.Access.Tier)
	require.True(t, resp.Access.IsPremiumLegacy)
	require.False(t, resp.Access.HasProAccess)
	require.Contains(t, resp.Access.Features, "AI_IDENTIFY")
	require.Equal(t, -1, resp.Access.Limits.Pipes)
	require.Equal(t, "apple", *resp.Access.Provider)
	require.NotNil(t, resp.Subscription)
	require.Equal(t, "active", resp.Subscription.Status)
}

func TestGetCurrentUser_AdminOnFree(t *testing.T) {
	repo := testutil.NewUsers(users.User{Email: "ops@example.com", Role: users.RoleAdmin, EntitlementTier: "free"})

	w := serve(t, access.NewService(repo, testutil.NewSubscriptions(), nil, nil), "ops@example.com")
	require.Equal(t, http.StatusOK, w.Code)

	var resp MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "free", resp.Access.Tier)
	require.True(t, resp.Access.HasProAccess)
	require.Equal(t, "admin_override", resp.Access.ProAccessReason)
	require.Len(t, resp.Access.Features, 11)
	require.Equal(t, 5, resp.Access.Limits.Pipes)
	require.Nil(t, resp.Access.Provider)
	require.Nil(t, resp.Subscription)
}

func TestGetCurrentUser_Errors(t *testing.T) {
	svc := access.NewService(testutil.NewUsers(), testutil.NewSubscriptions(), nil, nil)
	require.Equal(t, http.StatusUnauthorized, serve(t, svc, "").Code)
	require.Equal(t, http.StatusNotFound, serve(t, svc, "ghost@example.com").Code)
}
