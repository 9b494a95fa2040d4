package webapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/drummonds/goStorefront/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, h http.HandlerFunc) *apiClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newAPIClient(srv.URL)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type recordingRouter struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingRouter) CurrentPath() string { return "/cart" }

func (r *recordingRouter) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func TestOriginOf(t *testing.T) {
	u, err := url.Parse("https://shop.example.com:8443/products?term=ring")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com:8443", originOf(u))
}

func TestSessionDecoding(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/session", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"user":    map[string]string{"id": "u1", "email": "sara@example.com"},
			"isAdmin": true,
		})
	})

	session, err := api.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, navigation.Admin, session.Role())
	assert.Equal(t, "sara@example.com", session.User.Email)
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unable to sign out"})
	})

	err := api.SignOut(context.Background())
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "unable to sign out", apiErr.Message)
}

func TestCountsForCustomer(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/u1/cart":
			writeJSON(w, http.StatusOK, []map[string]any{
				{"productId": "p1", "name": "Ring", "quantity": 3},
				{"productId": "p2", "name": "Chain", "quantity": 8},
			})
		case "/api/users/u1/favorites":
			writeJSON(w, http.StatusOK, []map[string]any{{"productId": "p1", "name": "Ring"}})
		default:
			http.NotFound(w, r)
		}
	})

	session := navigation.Session{User: &navigation.User{ID: "u1", Email: "sara@example.com"}}
	cart, favorites, err := api.counts(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 11, cart)
	assert.Equal(t, 1, favorites)

	label, visible := navigation.Badge(cart)
	assert.True(t, visible)
	assert.Equal(t, "9+", label)
}

func TestCountsSkipNonCustomers(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})

	for _, session := range []navigation.Session{
		{},
		{IsGuest: true},
		{User: &navigation.User{ID: "a1"}, IsAdmin: true},
	} {
		cart, favorites, err := api.counts(context.Background(), session)
		require.NoError(t, err)
		assert.Zero(t, cart)
		assert.Zero(t, favorites)
	}
}

func TestCountsTreatMissingDataAsZero(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users/u1/favorites" {
			writeJSON(w, http.StatusOK, []map[string]any{})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unable to fetch cart"})
	})

	cart, favorites, err := api.counts(context.Background(), navigation.Session{User: &navigation.User{ID: "u1"}})
	assert.Error(t, err)
	assert.Zero(t, cart)
	assert.Zero(t, favorites)
}

func TestLogoutAgainstFailingServer(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unable to sign out"})
	})

	cs := &clientSession{}
	cs.Start(navigation.Session{User: &navigation.User{ID: "u1", Email: "sara@example.com"}})
	router := &recordingRouter{}
	menu := &navigation.Menu{}
	menu.Open()

	task := navigation.SessionExit{Remote: api, Store: cs, Router: router, Menu: menu}.Run(context.Background())

	assert.Equal(t, navigation.Anonymous, cs.Session().Role())
	assert.Equal(t, []string{navigation.HomePath}, router.paths)
	assert.False(t, menu.IsOpen())

	err := task.Wait(context.Background())
	require.ErrorIs(t, err, navigation.ErrSignOut)
	assert.Contains(t, err.Error(), "unable to sign out")
}

// storefrontServer answers like a server that still holds the customer's session
// and fails to sign out after a delay
func storefrontServer(t *testing.T, signOutDelay time.Duration) *apiClient {
	return newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/logout":
			time.Sleep(signOutDelay)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unable to sign out"})
		case "/api/config":
			writeJSON(w, http.StatusOK, map[string]any{"defaultLanguage": "en", "scrollThreshold": 50})
		case "/api/session":
			writeJSON(w, http.StatusOK, map[string]any{
				"user": map[string]string{"id": "u1", "email": "sara@example.com"},
			})
		case "/api/users/u1/cart":
			writeJSON(w, http.StatusOK, []map[string]any{{"productId": "p1", "name": "Ring", "quantity": 12}})
		case "/api/users/u1/favorites":
			writeJSON(w, http.StatusOK, []map[string]any{{"productId": "p1", "name": "Ring"}})
		default:
			http.NotFound(w, r)
		}
	})
}

func TestBarAfterRedirectStaysSignedOut(t *testing.T) {
	api := storefrontServer(t, 200*time.Millisecond)
	ctx := context.Background()

	cs := &clientSession{}
	before := loadBar(ctx, api, cs)
	require.Equal(t, navigation.Regular, before.session.Role())
	assert.Equal(t, 12, before.cartCount)

	router := &recordingRouter{}
	task := navigation.SessionExit{Remote: api, Store: cs, Router: router, Menu: &navigation.Menu{}}.Run(ctx)
	cs.Track(task, "Sign out failed")

	// the bar mounted by the redirect loads while the sign-out is still in flight
	after := loadBar(ctx, api, cs)
	select {
	case <-task.Done():
	default:
		t.Fatal("bar loaded before the sign-out settled")
	}
	assert.Equal(t, navigation.Anonymous, after.session.Role())
	assert.Zero(t, after.cartCount)
	assert.Zero(t, after.favCount)
	assert.Equal(t, "Sign out failed", after.notice)
	assert.True(t, after.cfgLoaded)
	assert.Equal(t, float64(50), after.cfg.ScrollThreshold)

	// the notice is shown once
	assert.Empty(t, cs.TakeNotice())
	again := loadBar(ctx, api, cs)
	assert.Equal(t, navigation.Anonymous, again.session.Role())
	assert.Empty(t, again.notice)
}

func TestNewSessionReplacesExitedOne(t *testing.T) {
	cs := &clientSession{}
	regular := navigation.Session{User: &navigation.User{ID: "u1"}}

	assert.Equal(t, navigation.Regular, cs.Adopt(regular).Role())
	cs.Clear()
	assert.Equal(t, navigation.Anonymous, cs.Adopt(regular).Role())

	cs.Start(navigation.Session{IsGuest: true})
	assert.Equal(t, navigation.Guest, cs.Session().Role())
	assert.Equal(t, navigation.Regular, cs.Adopt(regular).Role())
}

func TestSettleHonoursContext(t *testing.T) {
	cs := &clientSession{}
	require.NoError(t, cs.Settle(context.Background()))

	block := make(chan struct{})
	defer close(block)
	remote := signOutFunc(func(ctx context.Context) error {
		<-block
		return nil
	})
	cs.Track(navigation.StartSignOut(context.Background(), remote), "Sign out failed")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, cs.Settle(ctx), context.DeadlineExceeded)
}

type signOutFunc func(ctx context.Context) error

func (f signOutFunc) SignOut(ctx context.Context) error { return f(ctx) }

func TestEveryMenuItemHasARoute(t *testing.T) {
	for _, role := range []navigation.Role{navigation.Anonymous, navigation.Guest, navigation.Regular, navigation.Admin} {
		for _, item := range navigation.Build(role, bundle.For("en")) {
			_, ok := Routes[item.Path]
			assert.True(t, ok, "no page for %s", item.Path)
		}
	}
	for _, path := range []string{"/cart", "/login", "/signup"} {
		_, ok := Routes[path]
		assert.True(t, ok, "no page for %s", path)
	}
}

func TestGlyphFallback(t *testing.T) {
	assert.Equal(t, "🏠", glyph(navigation.IconHome))
	assert.Equal(t, "•", glyph(navigation.Icon("unknown")))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "45.00", formatPrice(4500))
	assert.Equal(t, "0.05", formatPrice(5))
	assert.Equal(t, "79.99", formatPrice(7999))
	assert.Equal(t, "-0.05", formatPrice(-5))
	assert.Equal(t, "-12.50", formatPrice(-1250))
}
