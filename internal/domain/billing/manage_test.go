package billing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pipevault/internal/domain/subscriptions"
	"pipevault/internal/domain/users"
)

var testURLs = StaticURLs{
	Portal:   "https://billing.stripe.com/p/login/test",
	AppStore: "https://apps.apple.com/app/id000000",
}

func TestManage_Stripe(t *testing.T) {
	nav := &RecordingNavigator{Bridge: true}
	sub := &subscriptions.Subscription{Provider: subscriptions.ProviderStripe}

	route := HandleManageSubscription(&users.User{}, sub, nav, testURLs, nil)
	require.Equal(t, RouteBillingPortal, route)
	require.Equal(t, Action{Kind: ActionOpenExternal, URL: testURLs.Portal}, nav.Action)
}

func TestManage_AppleInsideApp(t *testing.T) {
	nav := &RecordingNavigator{Bridge: true}
	sub := &subscriptions.Subscription{Provider: subscriptions.ProviderApple}

	route := HandleManageSubscription(nil, sub, nav, testURLs, nil)
	require.Equal(t, RouteNativeSettings, route)
	require.Equal(t, ActionNativeMessage, nav.Action.Kind)
	require.Equal(t, MessageOpenSubscriptionSettings, nav.Action.Message.Type)
}

func TestManage_AppleOnWeb(t *testing.T) {
	nav := &RecordingNavigator{}
	sub := &subscriptions.Subscription{Provider: "apple"}

	route := HandleManageSubscription(nil, sub, nav, testURLs, nil)
	require.Equal(t, RouteAppStore, route)
	require.Equal(t, testURLs.AppStore, nav.Action.URL)
}

func TestManage_NoSubscription(t *testing.T) {
	nav := &RecordingNavigator{Bridge: true}

	require.Equal(t, RouteInApp, HandleManageSubscription(nil, nil, nav, testURLs, nil))
	require.Equal(t, Action{Kind: ActionNavigate, Route: "/subscription"}, nav.Action)

	nav = &RecordingNavigator{}
	sub := &subscriptions.Subscription{Provider: "paypal"}
	require.Equal(t, RouteInApp, HandleManageSubscription(nil, sub, nav, testURLs, nil))
}

type failingNavigator struct {
	RecordingNavigator
}

func (f *failingNavigator) OpenExternal(url string) error {
	return errors.New("popup blocked")
}

func TestManage_NavigationFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	nav := &failingNavigator{}
	sub := &subscriptions.Subscription{Provider: subscriptions.ProviderStripe}

	route := HandleManageSubscription(&users.User{Email: "pat@example.com"}, sub, nav, testURLs, zap.New(core))
	require.Equal(t, RouteBillingPortal, route)
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "pat@example.com", logs.All()[0].ContextMap()["email"])
}
