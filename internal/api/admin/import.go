package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pipevault/internal/domain/billing"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

// Importer loads subscription records exported from the previous backend.
type Importer struct {
	users  users.Repository
	syncer *billing.Syncer
	logger *zap.Logger
}

func NewImporter(u users.Repository, syncer *billing.Syncer, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{users: u, syncer: syncer, logger: logger}
}

type ImportResult struct {
	Index    int    `json:"index"`
	Provider string `json:"provider,omitempty"`
	Inferred bool   `json:"inferred,omitempty"`
	Error    string `json:"error,omitempty"`
}

// POST /admin/subscriptions/import
//
// Body: {"email": "...", "records": [{...}, ...]}. Records keep whatever key
// spellings the old backend used. Each record is validated on its own; a bad
// record does not stop the rest.
func (h *Importer) ImportSubscriptions(c *gin.Context) {
	var body struct {
		Email   string                     `json:"email" binding:"required"`
		Records []subscriptions.RawProfile `json:"records" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.FindByEmail(ctx, body.Email); errors.Is(err, users.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	} else if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	results := make([]ImportResult, 0, len(body.Records))
	imported := 0
	for i, raw := range body.Records {
		n := subscriptions.NormalizeFields(raw)
		res := ImportResult{Index: i, Provider: string(n.Provider), Inferred: n.Inferred}

		// reload so each record sees the fields written by the previous one
		u, err := h.users.FindByEmail(ctx, body.Email)
		if err == nil {
			err = h.syncer.Record(ctx, u, subscriptions.FromRaw(raw))
		}
		switch {
		case errors.Is(err, subscriptions.ErrInconsistentFields):
			res.Error = err.Error()
		case err != nil:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed", "results": results})
			return
		default:
			imported++
		}
		results = append(results, res)
	}

	h.logger.Info("subscriptions imported",
		zap.String("admin", c.GetString("email")),
		zap.String("email", users.NormalizeEmail(body.Email)),
		zap.Int("imported", imported),
		zap.Int("rejected", len(body.Records)-imported))

	c.JSON(http.StatusOK, gin.H{"imported": imported, "results": results})
}
