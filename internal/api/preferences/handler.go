package preferences

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pipevault/internal/domain/preferences"
)

type Handler struct {
	store  preferences.Store
	logger *zap.Logger
}

func NewHandler(store preferences.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// GET /preferences
func (h *Handler) Get(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	p, err := h.store.Load(c.Request.Context(), email)
	if err != nil {
		// read errors degrade to defaults
		h.logger.Warn("load preferences failed; serving defaults", zap.String("email", email), zap.Error(err))
	}
	c.JSON(http.StatusOK, p)
}

// PUT /preferences
//
// Missing fields keep their stored value.
func (h *Handler) Update(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input struct {
		Locale         *string `json:"locale"`
		Currency       *string `json:"currency"`
		Theme          *string `json:"theme"`
		CollectionView *string `json:"collection_view"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
		return
	}

	ctx := c.Request.Context()
	current, err := h.store.Load(ctx, email)
	if err != nil {
		h.logger.Warn("load preferences failed; starting from defaults", zap.String("email", email), zap.Error(err))
	}
	if input.Locale != nil {
		current.Locale = *input.Locale
	}
	if input.Currency != nil {
		current.Currency = *input.Currency
	}
	if input.Theme != nil {
		current.Theme = *input.Theme
	}
	if input.CollectionView != nil {
		current.CollectionView = *input.CollectionView
	}

	saved, err := h.store.Save(ctx, email, current)
	if err != nil {
		h.logger.Error("save preferences failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save preferences"})
		return
	}
	c.JSON(http.StatusOK, saved)
}
