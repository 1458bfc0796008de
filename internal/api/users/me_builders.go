package users

import (
	"pipevault/internal/domain/access"
	"pipevault/internal/domain/entitlements"
	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
	"pipevault/internal/infra/stripe"
)

func BuildUserDTO(u *users.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		IsAdmin:      u.IsAdmin,
		AuthProvider: u.AuthProvider,
	}
}

func BuildLimitsDTO(l entitlements.Limits) LimitsDTO {
	return LimitsDTO{
		Pipes:         l.Pipes,
		Tobaccos:      l.Tobaccos,
		PhotosPerItem: l.PhotosPerItem,
		SmokingLogs:   l.SmokingLogs,
	}
}

func BuildAccessDTO(p access.Policy) AccessDTO {
	feats := p.Entitlements.Features()
	if p.ProAccessReason == entitlements.AccessAdminOverride {
		feats = entitlements.KnownFeatures
	}
	names := make([]string, 0, len(feats))
	for _, f := range feats {
		names = append(names, string(f))
	}

	var provider *string
	if p.Provider != subscriptions.ProviderNone {
		s := string(p.Provider)
		provider = &s
	}

	return AccessDTO{
		Tier:            string(p.Tier),
		IsPremiumLegacy: p.Entitlements.IsPremiumLegacy,
		HasProAccess:    p.ProAccessReason != entitlements.AccessNone,
		ProAccessReason: string(p.ProAccessReason),
		Features:        names,
		Limits:          BuildLimitsDTO(p.Entitlements.Limits),
		Provider:        provider,
	}
}

func BuildSubscriptionDTO(s *subscriptions.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	return &SubscriptionDTO{
		Provider:         string(subscriptions.ResolveSubscriptionProvider(s)),
		Status:           stripe.NormalizeStatus(s.Status),
		Tier:             s.Tier,
		StartedAt:        s.StartedAt,
		CurrentPeriodEnd: s.CurrentPeriodEnd,
	}
}

func BuildMeResponse(u *users.User, p access.Policy) MeResponse {
	return MeResponse{
		User:         BuildUserDTO(u),
		Access:       BuildAccessDTO(p),
		Subscription: BuildSubscriptionDTO(p.Primary),
	}
}
