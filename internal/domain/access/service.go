package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pipevault/internal/app/metrics"
	"pipevault/internal/domain/entitlements"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

// Loader is what HTTP handlers need from Service.
type Loader interface {
	PolicyFor(ctx context.Context, email string) (*users.User, Policy, error)
}

// Service loads a user's records and computes their policy.
type Service struct {
	users  users.Repository
	subs   subscriptions.Repository
	source entitlements.Source
	logger *zap.Logger
}

// NewService wires the loaders. source may be nil when no live entitlement
// check is configured.
func NewService(u users.Repository, s subscriptions.Repository, source entitlements.Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: u, subs: s, source: source, logger: logger}
}

// PolicyFor returns the user and their policy. A failing live check is
// logged and the cached fields are used instead.
func (s *Service) PolicyFor(ctx context.Context, email string) (*users.User, Policy, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, Policy{}, err
	}

	subs, err := s.subs.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, Policy{}, fmt.Errorf("load subscriptions: %w", err)
	}

	var payload *entitlements.Payload
	if s.source != nil {
		payload, err = s.source.Fetch(ctx, u)
		if err != nil {
			s.logger.Warn("live entitlement check failed; using stored tier",
				zap.String("email", u.Email), zap.Error(err))
			metrics.LiveCheckFailures.Inc()
			payload = nil
		}
	}

	policy := ComputePolicy(u, subs, payload)
	source := "stored"
	if payload != nil {
		source = "live"
	}
	metrics.TierResolutions.WithLabelValues(string(policy.Tier), source).Inc()

	if policy.ProAccessReason == entitlements.AccessAdminOverride {
		s.logger.Info("pro access granted by admin override",
			zap.String("email", u.Email), zap.String("role", u.Role), zap.Bool("is_admin", u.IsAdmin))
	}
	return u, policy, nil
}
