package entitlements

import "pipevault/internal/domain/plans"

type Resource string

const (
	ResourcePipes         Resource = "pipes"
	ResourceTobaccos      Resource = "tobaccos"
	ResourcePhotosPerItem Resource = "photos_per_item"
	ResourceSmokingLogs   Resource = "smoking_logs"
)

// Unlimited marks a resource without a cap.
const Unlimited = -1

type Limits struct {
	Pipes         int `json:"pipes"`
	Tobaccos      int `json:"tobaccos"`
	PhotosPerItem int `json:"photos_per_item"`
	SmokingLogs   int `json:"smoking_logs"`
}

var freeLimits = Limits{
	Pipes:         5,
	Tobaccos:      10,
	PhotosPerItem: 1,
	SmokingLogs:   10,
}

var paidLimits = Limits{
	Pipes:         Unlimited,
	Tobaccos:      Unlimited,
	PhotosPerItem: Unlimited,
	SmokingLogs:   Unlimited,
}

func LimitsFor(t plans.Tier) Limits {
	switch t {
	case plans.TierPremium, plans.TierPro:
		return paidLimits
	default:
		return freeLimits
	}
}

// For returns the cap for a resource; ok is false for unknown resources.
func (l Limits) For(r Resource) (limit int, ok bool) {
	switch r {
	case ResourcePipes:
		return l.Pipes, true
	case ResourceTobaccos:
		return l.Tobaccos, true
	case ResourcePhotosPerItem:
		return l.PhotosPerItem, true
	case ResourceSmokingLogs:
		return l.SmokingLogs, true
	}
	return 0, false
}

// Allows reports whether one more item fits when current items already exist.
func (l Limits) Allows(r Resource, current int) bool {
	limit, ok := l.For(r)
	if !ok {
		return false
	}
	if limit == Unlimited {
		return true
	}
	return current < limit
}
