package billing

import (
	"strings"

	"go.uber.org/zap"

	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

// Navigator performs the client-side navigation for a routing decision.
type Navigator interface {
	// HasNativeBridge reports whether the client runs inside the iOS app's web view.
	HasNativeBridge() bool
	OpenExternal(url string) error
	SendNative(msg NativeMessage) error
	Push(route string) error
}

type URLBuilder interface {
	BillingPortalURL() string
	AppStoreURL() string
	PageURL(page string) string
}

type NativeMessage struct {
	Type string `json:"type"`
}

const (
	MessageOpenSubscriptionSettings = "openSubscriptionSettings"
	PageSubscription                = "Subscription"
)

type Route string

const (
	RouteBillingPortal  Route = "billing_portal"
	RouteNativeSettings Route = "native_settings"
	RouteAppStore       Route = "app_store"
	RouteInApp          Route = "in_app"
)

// HandleManageSubscription sends the user to wherever their subscription can
// be managed: the Stripe portal, the App Store settings, or the in-app
// subscription page when there is nothing to manage. Navigation is
// fire-and-forget; failures are logged and the chosen route is still returned.
func HandleManageSubscription(u *users.User, sub *subscriptions.Subscription, nav Navigator, urls URLBuilder, logger *zap.Logger) Route {
	if logger == nil {
		logger = zap.NewNop()
	}
	email := ""
	if u != nil {
		email = u.Email
	}

	var (
		route Route
		err   error
	)
	switch subscriptions.ResolveSubscriptionProvider(sub) {
	case subscriptions.ProviderStripe:
		route = RouteBillingPortal
		err = nav.OpenExternal(urls.BillingPortalURL())
	case subscriptions.ProviderApple:
		if nav.HasNativeBridge() {
			route = RouteNativeSettings
			err = nav.SendNative(NativeMessage{Type: MessageOpenSubscriptionSettings})
		} else {
			route = RouteAppStore
			err = nav.OpenExternal(urls.AppStoreURL())
		}
	default:
		route = RouteInApp
		err = nav.Push(urls.PageURL(PageSubscription))
	}

	if err != nil {
		logger.Warn("manage subscription navigation failed",
			zap.String("email", email), zap.String("route", string(route)), zap.Error(err))
	}
	return route
}

// StaticURLs is a URLBuilder over fixed configuration values.
type StaticURLs struct {
	Portal   string
	AppStore string
}

func (s StaticURLs) BillingPortalURL() string { return s.Portal }
func (s StaticURLs) AppStoreURL() string      { return s.AppStore }

func (s StaticURLs) PageURL(page string) string {
	return "/" + strings.ToLower(strings.TrimSpace(page))
}

// Action is the navigation a client should perform, as recorded by a
// RecordingNavigator.
type Action struct {
	Kind    string         `json:"action"`
	URL     string         `json:"url,omitempty"`
	Route   string         `json:"route,omitempty"`
	Message *NativeMessage `json:"message,omitempty"`
}

const (
	ActionOpenExternal  = "open_external"
	ActionNativeMessage = "native_message"
	ActionNavigate      = "navigate"
)

// RecordingNavigator captures the navigation instead of performing it, so a
// server can hand the decision back to the client.
type RecordingNavigator struct {
	Bridge bool
	Action Action
}

func (r *RecordingNavigator) HasNativeBridge() bool { return r.Bridge }

func (r *RecordingNavigator) OpenExternal(url string) error {
	r.Action = Action{Kind: ActionOpenExternal, URL: url}
	return nil
}

func (r *RecordingNavigator) SendNative(msg NativeMessage) error {
	m := msg
	r.Action = Action{Kind: ActionNativeMessage, Message: &m}
	return nil
}

func (r *RecordingNavigator) Push(route string) error {
	r.Action = Action{Kind: ActionNavigate, Route: route}
	return nil
}
