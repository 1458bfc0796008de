package entitlements

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"pipevault/internal/app/metrics"
	"pipevault/internal/domain/access"
	"pipevault/internal/domain/entitlements"
	"pipevault/internal/domain/users"
	"pipevault/internal/testutil"
)

func router(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := testutil.NewUsers(
		users.User{Email: "free@example.com", EntitlementTier: "free"},
		users.User{Email: "premium@example.com", EntitlementTier: "premium"},
		users.User{Email: "meta@example.com", Metadata: users.UserMetadata{Tier: " PRO "}},
		users.User{Email: "owner@example.com", EntitlementTier: "free", Role: users.RoleOwner},
	)
	h := NewHandler(access.NewService(repo, testutil.NewSubscriptions(), nil, nil))

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("email", c.GetHeader("X-Test-Email")) })
	r.GET("/entitlements", h.List)
	r.GET("/entitlements/features/:feature", h.CheckFeature)
	r.POST("/entitlements/limits/check", h.CheckLimit)
	return r
}

func do(r http.Handler, method, path, email, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Test-Email", email)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestList(t *testing.T) {
	w := do(router(t), http.MethodGet, "/entitlements", "premium@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tier     string `json:"tier"`
		Features []struct {
			Feature string `json:"feature"`
			Allowed bool   `json:"allowed"`
		} `json:"features"`
		Limits entitlements.Limits `json:"limits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "premium", resp.Tier)
	require.Len(t, resp.Features, len(entitlements.KnownFeatures))

	allowed := map[string]bool{}
	for _, f := range resp.Features {
		allowed[f.Feature] = f.Allowed
	}
	require.True(t, allowed["MESSAGING"])
	require.False(t, allowed["BULK_EDIT"])
	require.Equal(t, entitlements.Unlimited, resp.Limits.Pipes)
}

func TestCheckFeature(t *testing.T) {
	r := router(t)

	w := do(r, http.MethodGet, "/entitlements/features/bulk_edit", "meta@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"feature":"BULK_EDIT","allowed":true,"tier":"pro"}`, w.Body.String())

	w = do(r, http.MethodGet, "/entitlements/features/MESSAGING", "free@example.com", "")
	require.JSONEq(t, `{"feature":"MESSAGING","allowed":false,"tier":"free"}`, w.Body.String())

	w = do(r, http.MethodGet, "/entitlements/features/MESSAGING", "ghost@example.com", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckLimit(t *testing.T) {
	r := router(t)

	w := do(r, http.MethodPost, "/entitlements/limits/check", "free@example.com", `{"resource":"pipes","current":4}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"resource":"pipes","limit":5,"current":4,"allowed":true}`, w.Body.String())

	w = do(r, http.MethodPost, "/entitlements/limits/check", "free@example.com", `{"resource":"pipes","current":5}`)
	require.JSONEq(t, `{"resource":"pipes","limit":5,"current":5,"allowed":false}`, w.Body.String())

	w = do(r, http.MethodPost, "/entitlements/limits/check", "premium@example.com", `{"resource":"smoking_logs","current":0}`)
	require.JSONEq(t, `{"resource":"smoking_logs","limit":-1,"current":0,"allowed":true}`, w.Body.String())

	require.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/entitlements/limits/check", "free@example.com", `{"resource":"cigars","current":0}`).Code)
	require.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/entitlements/limits/check", "free@example.com", `{"resource":"pipes"}`).Code)
}

func TestCheckFeature_UnknownNamesShareOneSeries(t *testing.T) {
	r := router(t)

	w := do(r, http.MethodGet, "/entitlements/features/not_a_feature", "free@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"feature":"NOT_A_FEATURE","allowed":false,"tier":"free"}`, w.Body.String())
	before := promtest.CollectAndCount(metrics.FeatureChecks)
	unknown := metrics.FeatureChecks.WithLabelValues("unknown", "denied")
	hits := promtest.ToFloat64(unknown)

	for i := 0; i < 20; i++ {
		do(r, http.MethodGet, "/entitlements/features/junk_"+strconv.Itoa(i), "free@example.com", "")
	}
	require.Equal(t, before, promtest.CollectAndCount(metrics.FeatureChecks))
	require.Equal(t, hits+20, promtest.ToFloat64(unknown))
}

func TestAdminOverride_OpensLimits(t *testing.T) {
	r := router(t)

	w := do(r, http.MethodGet, "/entitlements/features/UNLIMITED_COLLECTION", "owner@example.com", "")
	require.JSONEq(t, `{"feature":"UNLIMITED_COLLECTION","allowed":true,"tier":"free"}`, w.Body.String())

	w = do(r, http.MethodPost, "/entitlements/limits/check", "owner@example.com", `{"resource":"pipes","current":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"resource":"pipes","limit":-1,"current":5,"allowed":true}`, w.Body.String())
}
