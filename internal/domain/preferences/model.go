package preferences

import (
	"strings"
	"time"
)

const DefaultLocale = "en"

var supportedLocales = map[string]bool{
	"en": true,
	"de": true,
	"fr": true,
	"it": true,
	"es": true,
	"nl": true,
}

var supportedViews = map[string]bool{
	"grid": true,
	"list": true,
}

type Preferences struct {
	Locale         string `json:"locale"`
	Currency       string `json:"currency"`
	Theme          string `json:"theme"`
	CollectionView string `json:"collection_view"`
}

func Defaults() Preferences {
	return Preferences{
		Locale:         DefaultLocale,
		Currency:       "EUR",
		Theme:          "system",
		CollectionView: "grid",
	}
}

// Normalize returns a copy with every field coerced to a supported value.
// Region subtags are dropped ("de-AT" becomes "de").
func (p Preferences) Normalize() Preferences {
	d := Defaults()
	out := p

	loc := strings.ToLower(strings.TrimSpace(p.Locale))
	if i := strings.IndexAny(loc, "-_"); i > 0 {
		loc = loc[:i]
	}
	if !supportedLocales[loc] {
		loc = d.Locale
	}
	out.Locale = loc

	cur := strings.ToUpper(strings.TrimSpace(p.Currency))
	if len(cur) != 3 {
		cur = d.Currency
	}
	out.Currency = cur

	switch t := strings.ToLower(strings.TrimSpace(p.Theme)); t {
	case "light", "dark", "system":
		out.Theme = t
	default:
		out.Theme = d.Theme
	}

	view := strings.ToLower(strings.TrimSpace(p.CollectionView))
	if !supportedViews[view] {
		view = d.CollectionView
	}
	out.CollectionView = view

	return out
}

// Record is the database row behind GormStore.
type Record struct {
	Email          string `gorm:"primaryKey;type:varchar(255)"`
	Locale         string `gorm:"type:varchar(8);not null"`
	Currency       string `gorm:"type:varchar(3);not null"`
	Theme          string `gorm:"type:varchar(16);not null"`
	CollectionView string `gorm:"type:varchar(16);not null"`
	UpdatedAt      time.Time
}

func (Record) TableName() string { return "user_preferences" }
