package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"pipevault/internal/domain/users"
)

const (
	googleIssuer    = "https://accounts.google.com"
	stateCookieName = "oauth_state"
)

type GoogleConfig struct {
	ClientID         string
	ClientSecret     string
	RedirectURL      string
	FrontendRedirect string
}

// Google handles "Sign in with Google". The OIDC provider document is fetched
// on first use.
type Google struct {
	*Handler
	cfg     GoogleConfig
	oauth   *oauth2.Config
	once    sync.Once
	verify  *oidc.IDTokenVerifier
	initErr error
}

func NewGoogle(h *Handler, cfg GoogleConfig) *Google {
	return &Google{
		Handler: h,
		cfg:     cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *Google) verifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.once.Do(func() {
		provider, err := oidc.NewProvider(ctx, googleIssuer)
		if err != nil {
			g.initErr = fmt.Errorf("init google oidc provider: %w", err)
			return
		}
		g.verify = provider.Verifier(&oidc.Config{ClientID: g.cfg.ClientID})
	})
	return g.verify, g.initErr
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /auth/google
func (g *Google) Start(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}
	c.SetCookie(stateCookieName, state, 300, "/", "", false, true)
	c.Redirect(http.StatusFound, g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /auth/google/callback
func (g *Google) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}
	if cookieState, err := c.Cookie(stateCookieName); err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}

	ctx := c.Request.Context()
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing id_token"})
		return
	}

	claims, err := g.verifyIDToken(ctx, rawIDToken)
	if err != nil {
		g.logger.Warn("google id token rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id_token"})
		return
	}

	user, err := g.findOrCreate(ctx, claims)
	if err != nil {
		g.logger.Error("google sign-in failed", zap.String("email", claims.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, err := g.issueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
		return
	}
	if g.cfg.FrontendRedirect == "" {
		c.JSON(http.StatusOK, gin.H{"token": token})
		return
	}
	c.Redirect(http.StatusFound, g.cfg.FrontendRedirect+"?token="+token)
}

type googleIDClaims struct {
	Sub       string `json:"sub"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	GivenName string `json:"given_name"`
}

func (g *Google) verifyIDToken(ctx context.Context, raw string) (*googleIDClaims, error) {
	v, err := g.verifier(ctx)
	if err != nil {
		return nil, err
	}
	idToken, err := v.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	var claims googleIDClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	if claims.Email == "" || claims.Sub == "" {
		return nil, errors.New("token missing required claims")
	}
	return &claims, nil
}

// findOrCreate matches on the Google subject, then links an existing account
// by email, then creates a new free account.
func (g *Google) findOrCreate(ctx context.Context, gc *googleIDClaims) (*users.User, error) {
	u, err := g.users.FindByGoogleSub(ctx, gc.Sub)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}

	u, err = g.users.FindByEmail(ctx, gc.Email)
	if err == nil {
		if u.GoogleSub == nil {
			if err := g.users.Update(ctx, u.ID, map[string]interface{}{"google_sub": gc.Sub}); err != nil {
				return nil, err
			}
			sub := gc.Sub
			u.GoogleSub = &sub
		}
		return u, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}

	sub := gc.Sub
	created := &users.User{
		Name:            firstNonEmpty(gc.GivenName, gc.Name),
		Email:           gc.Email,
		AuthProvider:    "google",
		GoogleSub:       &sub,
		Role:            users.RoleMember,
		EntitlementTier: "free",
	}
	if err := g.users.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
