package webapp

import (
	"context"
	"sync"

	"github.com/drummonds/goStorefront/i18n"
	"github.com/drummonds/goStorefront/navigation"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

const preferencesKey = "preferences"

var (
	bundle      = i18n.MustLoad()
	itemBuilder navigation.Builder
)

// clientSession is the session every mounted bar and page renders from. Navigation
// remounts components, so it lives at package level rather than in one of them
type clientSession struct {
	mu      sync.Mutex
	session navigation.Session
	exited  bool          // set by Clear; the server session is ignored until Start
	settled chan struct{} // closed once the last sign-out outcome is recorded
	notice  string
}

var shared = &clientSession{}

func (c *clientSession) Session() navigation.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Clear drops the local session. It stays cleared even if the server still knows it
func (c *clientSession) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = navigation.Session{}
	c.exited = true
}

// Start adopts a session the user has just opened
func (c *clientSession) Start(s navigation.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.exited = false
}

// Adopt takes the session reported by the server, unless the user left it
func (c *clientSession) Adopt(remote navigation.Session) navigation.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.exited {
		c.session = remote
	}
	return c.session
}

// Track records the outcome of a sign-out; failed becomes the notice when it fails
func (c *clientSession) Track(task *navigation.SignOutTask, failed string) {
	settled := make(chan struct{})
	c.mu.Lock()
	c.settled = settled
	c.mu.Unlock()
	go func() {
		defer close(settled)
		if err := task.Wait(context.Background()); err != nil {
			app.Logf("sign out: %v", err)
			c.mu.Lock()
			c.notice = failed
			c.mu.Unlock()
		}
	}()
}

// Settle waits for the pending sign-out, if any, so the server session is read after it
func (c *clientSession) Settle(ctx context.Context) error {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()
	if settled == nil {
		return nil
	}
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TakeNotice returns the pending notice once
func (c *clientSession) TakeNotice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	notice := c.notice
	c.notice = ""
	return notice
}

// ctxRouter adapts the go-app context to navigation.Router
type ctxRouter struct {
	ctx app.Context
}

func (r ctxRouter) CurrentPath() string  { return r.ctx.Page().URL().Path }
func (r ctxRouter) Navigate(path string) { r.ctx.Navigate(path) }

// loadPreferences reads the toggles from local storage, falling back to the server defaults
func loadPreferences(ctx app.Context, cfg clientConfig) navigation.Preferences {
	var p navigation.Preferences
	if err := ctx.LocalStorage().Get(preferencesKey, &p); err != nil {
		app.Logf("unable to read preferences: %v", err)
	}
	if p.Language == "" {
		p.Language = cfg.DetectedLanguage
		if p.Language == "" {
			p.Language = cfg.DefaultLanguage
		}
	}
	if p.Theme == "" {
		p.Theme = cfg.DefaultTheme
	}
	return p.Normalize()
}

func savePreferences(ctx app.Context, p navigation.Preferences) {
	if err := ctx.LocalStorage().Set(preferencesKey, p); err != nil {
		app.Logf("unable to save preferences: %v", err)
	}
}

// applyPreferences sets language, direction and theme on the document root
func applyPreferences(p navigation.Preferences) {
	root := app.Window().Get("document").Get("documentElement")
	root.Call("setAttribute", "lang", p.Language)
	root.Call("setAttribute", "dir", p.Dir())
	root.Call("setAttribute", "data-theme", p.Theme)
}

var iconGlyphs = map[navigation.Icon]string{
	navigation.IconHome:        "🏠",
	navigation.IconInfo:        "ℹ️",
	navigation.IconShoppingBag: "🛍️",
	navigation.IconPhone:       "📞",
	navigation.IconPackage:     "📦",
	navigation.IconHeart:       "❤️",
	navigation.IconSettings:    "⚙️",
	navigation.IconPlusCircle:  "➕",
	navigation.IconSun:         "☀️",
	navigation.IconMoon:        "🌙",
}

func glyph(icon navigation.Icon) string {
	if g, ok := iconGlyphs[icon]; ok {
		return g
	}
	return "•"
}
