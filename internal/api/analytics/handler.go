package analytics

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"pipevault/internal/app/http/middleware"
	"pipevault/internal/domain/access"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

type Summary struct {
	Tier              string     `json:"tier"`
	MemberSince       time.Time  `json:"member_since"`
	Subscriptions     int        `json:"subscriptions"`
	SubscribedDays    int        `json:"subscribed_days"`
	CurrentPeriodEnds *time.Time `json:"current_period_ends"`
}

type Handler struct {
	users users.Repository
	subs  subscriptions.Repository
	now   func() time.Time
}

func NewHandler(u users.Repository, s subscriptions.Repository) *Handler {
	return &Handler{users: u, subs: s, now: time.Now}
}

// GET /analytics/summary
//
// Runs behind RequireFeature(ANALYTICS_STATS), which leaves the policy in
// the context.
func (h *Handler) GetSummary(c *gin.Context) {
	v, ok := c.Get(middleware.PolicyKey)
	policy, _ := v.(access.Policy)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Policy not resolved"})
		return
	}

	ctx := c.Request.Context()
	u, err := h.users.FindByEmail(ctx, c.GetString("email"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	subs, err := h.subs.ListByUser(ctx, u.ID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriptions"})
		return
	}

	c.JSON(http.StatusOK, Summarize(u, subs, policy, h.now()))
}

// Summarize counts the days covered by at least one subscription up to now.
// Overlapping subscriptions count once. Subscriptions without a start date do
// not contribute days.
func Summarize(u *users.User, subs []subscriptions.Subscription, p access.Policy, now time.Time) Summary {
	out := Summary{
		Tier:           string(p.Tier),
		MemberSince:    u.CreatedAt,
		Subscriptions:  len(subs),
		SubscribedDays: int(covered(subs, now).Hours() / 24),
	}

	if p.Primary != nil {
		out.CurrentPeriodEnds = p.Primary.CurrentPeriodEnd
	}
	return out
}

type interval struct{ start, end time.Time }

// covered returns the length of the union of the subscription periods, each
// clipped to now.
func covered(subs []subscriptions.Subscription, now time.Time) time.Duration {
	spans := make([]interval, 0, len(subs))
	for _, s := range subs {
		if s.StartedAt == nil {
			continue
		}
		end := now
		if s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(now) {
			end = *s.CurrentPeriodEnd
		}
		if end.After(*s.StartedAt) {
			spans = append(spans, interval{*s.StartedAt, end})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	var total time.Duration
	var cur interval
	for i, sp := range spans {
		switch {
		case i == 0:
			cur = sp
		case !sp.start.After(cur.end):
			if sp.end.After(cur.end) {
				cur.end = sp.end
			}
		default:
			total += cur.end.Sub(cur.start)
			cur = sp
		}
	}
	if len(spans) > 0 {
		total += cur.end.Sub(cur.start)
	}
	return total
}
