package users

import "time"

type MeResponse struct {
	User         UserDTO          `json:"user"`
	Access       AccessDTO        `json:"access"`
	Subscription *SubscriptionDTO `json:"subscription"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	IsAdmin      bool   `json:"isAdmin"`
	AuthProvider string `json:"auth_provider"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	Tier            string    `json:"tier"` // free|premium|pro
	IsPremiumLegacy bool      `json:"is_premium_legacy"`
	HasProAccess    bool      `json:"has_pro_access"`
	ProAccessReason string    `json:"pro_access_reason"` // none|tier|admin_override
	Features        []string  `json:"features"`
	Limits          LimitsDTO `json:"limits"`
	Provider        *string   `json:"provider"` // stripe|apple, null when unknown
}

// -1 means unlimited.
type LimitsDTO struct {
	Pipes         int `json:"pipes"`
	Tobaccos      int `json:"tobaccos"`
	PhotosPerItem int `json:"photos_per_item"`
	SmokingLogs   int `json:"smoking_logs"`
}

/* ---------- SUBSCRIPTION ---------- */

type SubscriptionDTO struct {
	Provider         string     `json:"provider"`
	Status           string     `json:"status"`
	Tier             string     `json:"tier"`
	StartedAt        *time.Time `json:"started_at"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}
