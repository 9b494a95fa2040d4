package webapp

import (
	"context"
	"fmt"
	"time"

	"github.com/drummonds/goStorefront/navigation"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// NavBar is the top navigation bar: an inline bar on wide screens and an
// overlay panel on small ones, both rendered from the same state
type NavBar struct {
	app.Compo

	api       *apiClient
	cfg       clientConfig
	prefs     navigation.Preferences
	session   navigation.Session
	menu      navigation.Menu
	scroll    *navigation.ScrollTracker
	cartCount int
	favCount  int
	notice    string
	path      string

	releaseScroll func()
}

// OnMount loads the session and counts, and starts listening to window scrolls
func (n *NavBar) OnMount(ctx app.Context) {
	n.scroll = navigation.NewScrollTracker(navigation.DefaultScrollThreshold)
	n.path = ctx.Page().URL().Path
	n.session = shared.Session()
	if !app.IsClient {
		return
	}
	n.api = newAPIClient(originOf(app.Window().URL()))
	n.prefs = loadPreferences(ctx, n.cfg)
	applyPreferences(n.prefs)

	n.listenScroll(ctx)
	n.load(ctx)
}

// OnNav keeps the active item in sync with the page
func (n *NavBar) OnNav(ctx app.Context) {
	n.path = ctx.Page().URL().Path
}

// OnDismount releases the scroll listener
func (n *NavBar) OnDismount() {
	if n.releaseScroll != nil {
		n.releaseScroll()
		n.releaseScroll = nil
	}
}

func (n *NavBar) listenScroll(ctx app.Context) {
	onScroll := app.FuncOf(func(this app.Value, args []app.Value) any {
		offset := app.Window().Get("scrollY").Float()
		if (offset > n.scroll.Threshold) == n.scroll.Scrolled() {
			return nil
		}
		ctx.Dispatch(func(ctx app.Context) {
			n.scroll.Update(offset)
		})
		return nil
	})
	app.Window().Call("addEventListener", "scroll", onScroll)
	n.releaseScroll = func() {
		app.Window().Call("removeEventListener", "scroll", onScroll)
		onScroll.Release()
	}
}

// barState is what the bar fetches when it mounts
type barState struct {
	cfg       clientConfig
	cfgLoaded bool
	session   navigation.Session
	cartCount int
	favCount  int
	notice    string
}

// loadBar waits for a pending sign-out, then reads config, session and counts.
// Failures leave the bar anonymous with zero counts
func loadBar(ctx context.Context, api *apiClient, cs *clientSession) barState {
	var st barState
	if err := cs.Settle(ctx); err != nil {
		app.Logf("sign out still pending: %v", err)
	}
	st.notice = cs.TakeNotice()

	cfg, err := api.Config(ctx)
	if err != nil {
		app.Logf("unable to load config: %v", err)
	} else {
		st.cfg, st.cfgLoaded = cfg, true
	}
	remote, err := api.Session(ctx)
	if err != nil {
		app.Logf("unable to load session: %v", err)
		remote = navigation.Session{}
	}
	st.session = cs.Adopt(remote)
	st.cartCount, st.favCount, err = api.counts(ctx, st.session)
	if err != nil {
		app.Logf("unable to load cart or favorites: %v", err)
	}
	return st
}

func (n *NavBar) load(ctx app.Context) {
	api := n.api
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		st := loadBar(reqCtx, api, shared)

		ctx.Dispatch(func(ctx app.Context) {
			if st.cfgLoaded {
				n.cfg = st.cfg
				if st.cfg.ScrollThreshold > 0 {
					n.scroll.Threshold = st.cfg.ScrollThreshold
				}
				n.prefs = loadPreferences(ctx, st.cfg)
				applyPreferences(n.prefs)
			}
			n.session = st.session
			n.cartCount = st.cartCount
			n.favCount = st.favCount
			if st.notice != "" {
				n.notice = st.notice
			}
		})
	})
}

func (n *NavBar) t() navigation.Translator {
	return bundle.For(n.prefs.Language)
}

func (n *NavBar) siteName() string {
	return n.t().T("siteName")
}

func (n *NavBar) onToggleMenu(ctx app.Context, e app.Event) {
	n.menu.Toggle()
}

func (n *NavBar) onCloseMenu(ctx app.Context, e app.Event) {
	n.menu.Close()
}

func (n *NavBar) onSelect(item navigation.Item) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		e.PreventDefault()
		n.menu.Select(item, ctxRouter{ctx: ctx})
	}
}

func (n *NavBar) goTo(path string) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		e.PreventDefault()
		n.menu.Close()
		ctx.Navigate(path)
	}
}

func (n *NavBar) savePreferences(ctx app.Context) {
	savePreferences(ctx, n.prefs)
	applyPreferences(n.prefs)
	ctx.NewActionWithValue(preferencesChanged, n.prefs)
}

func (n *NavBar) onToggleLanguage(ctx app.Context, e app.Event) {
	n.prefs = n.prefs.ToggleLanguage()
	n.savePreferences(ctx)
}

func (n *NavBar) onToggleTheme(ctx app.Context, e app.Event) {
	n.prefs = n.prefs.ToggleTheme()
	n.savePreferences(ctx)
}

// onLogout clears the shared session and leaves right away. The bar mounted after
// the redirect settles the sign-out before it reads the server session again; when
// no redirect happens this bar picks up the notice itself
func (n *NavBar) onLogout(ctx app.Context, e app.Event) {
	exit := navigation.SessionExit{
		Remote: n.api,
		Store:  shared,
		Router: ctxRouter{ctx: ctx},
		Menu:   &n.menu,
	}
	task := exit.Run(context.Background())
	shared.Track(task, n.t().T("signOutFailed"))
	n.session = shared.Session()
	n.cartCount = 0
	n.favCount = 0

	ctx.Async(func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := shared.Settle(waitCtx); err != nil {
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			if !n.Mounted() {
				return
			}
			if notice := shared.TakeNotice(); notice != "" {
				n.notice = notice
			}
		})
	})
}

func (n *NavBar) onDismissNotice(ctx app.Context, e app.Event) {
	n.notice = ""
}

// Render renders the navigation bar
func (n *NavBar) Render() app.UI {
	session := n.session
	role := session.Role()
	items := itemBuilder.Items(role, n.t())

	class := "navbar"
	if n.scroll != nil && n.scroll.Scrolled() {
		class += " navbar-scrolled"
	}

	elems := []app.UI{
		app.Nav().
			Class(class).
			Body(
				n.renderBrand(),
				n.renderDesktopMenu(items),
				app.Div().Class("navbar-end").Body(n.renderDesktopTools(session)...),
				app.Button().
					Type("button").
					Class("navbar-burger").
					Aria("label", n.menuLabel()).
					Aria("expanded", n.menu.IsOpen()).
					OnClick(n.onToggleMenu).
					Text(n.menuGlyph()),
			),
	}
	if n.notice != "" {
		elems = append(elems, app.Div().Class("navbar-notice").Body(
			app.Span().Text(n.notice),
			app.Button().Type("button").Class("navbar-notice-close").OnClick(n.onDismissNotice).Text("✕"),
		))
	}
	if n.menu.IsOpen() {
		elems = append(elems,
			app.Div().Class("navbar-overlay").OnClick(n.onCloseMenu),
			n.renderMobilePanel(session, items),
		)
	}
	return app.Header().Class("navbar-container").Body(elems...)
}

func (n *NavBar) menuLabel() string {
	if n.menu.IsOpen() {
		return n.t().T("closeMenu")
	}
	return n.t().T("openMenu")
}

func (n *NavBar) menuGlyph() string {
	if n.menu.IsOpen() {
		return "✕"
	}
	return "☰"
}

func (n *NavBar) renderBrand() app.UI {
	t := n.t()
	return app.A().
		Href("/").
		Class("navbar-brand").
		OnClick(n.goTo("/")).
		Body(
			app.Img().Src("/web/logo.png").Alt(n.siteName()).Class("navbar-logo"),
			app.Div().Class("navbar-title").Body(
				app.H1().Text(n.siteName()),
				app.P().Class("navbar-tagline").Text(t.T("siteTagline")),
			),
		)
}

func (n *NavBar) renderDesktopMenu(items []navigation.Item) app.UI {
	current := n.path
	entries := make([]app.UI, 0, len(items))
	for _, item := range items {
		class := "navbar-item navbar-accent-" + item.Color
		if navigation.IsActive(item.Path, current) {
			class += " navbar-item-active"
		}
		entries = append(entries, app.Li().Body(
			app.A().
				Href(item.Path).
				Class(class).
				OnClick(n.onSelect(item)).
				Body(
					app.Span().Class("navbar-icon").Text(glyph(item.Icon)),
					app.Span().Text(item.Label),
				),
		))
	}
	return app.Ul().Class("navbar-menu").Body(entries...)
}

func (n *NavBar) renderToggles() []app.UI {
	t := n.t()
	langLabel := "ع"
	if n.prefs.Language == navigation.LangArabic {
		langLabel = "EN"
	}
	return []app.UI{
		app.Button().Type("button").Class("navbar-tool").Aria("label", t.T("language")).
			OnClick(n.onToggleLanguage).Text("🌐 " + langLabel),
		app.Button().Type("button").Class("navbar-tool").Aria("label", n.themeLabel()).
			OnClick(n.onToggleTheme).Text(glyph(n.prefs.ThemeIcon())),
		app.A().Href(n.instagramURL()).Target("_blank").Rel("noopener noreferrer").
			Class("navbar-tool").Aria("label", "Instagram").
			OnClick(n.onCloseMenu).Text("📷"),
	}
}

func (n *NavBar) renderDesktopTools(session navigation.Session) []app.UI {
	t := n.t()
	tools := []app.UI{app.Div().Class("navbar-tools").Body(n.renderToggles()...)}

	if session.Role() == navigation.Regular {
		tools = append(tools, app.Div().Class("navbar-actions").Body(
			n.badgeButton("❤️", t.T("favorites"), n.favCount, "/favorites"),
			n.badgeButton("🛒", t.T("cart"), n.cartCount, "/cart"),
		))
	}

	if session.User != nil || session.IsGuest {
		tools = append(tools, app.Div().Class("navbar-user").Body(
			app.Span().Class("navbar-avatar").Text("👤"),
			app.Span().Class("navbar-username").Text(session.DisplayName(t)),
			app.Button().Type("button").Class("navbar-logout").OnClick(n.onLogout).Text("🚪 "+t.T("logout")),
		))
	} else {
		tools = append(tools, app.Div().Class("navbar-auth").Body(
			app.Button().Type("button").Class("btn btn-ghost").OnClick(n.goTo("/login")).Text(t.T("login")),
			app.Button().Type("button").Class("btn btn-primary").OnClick(n.goTo("/signup")).Text(t.T("signup")),
		))
	}
	return tools
}

func (n *NavBar) badgeButton(icon, label string, count int, path string) app.UI {
	body := []app.UI{app.Span().Text(icon)}
	if text, visible := navigation.Badge(count); visible {
		body = append(body, app.Span().Class("navbar-badge").Text(text))
	}
	return app.Button().
		Type("button").
		Class("navbar-action").
		Aria("label", label).
		OnClick(n.goTo(path)).
		Body(body...)
}

func (n *NavBar) renderMobilePanel(session navigation.Session, items []navigation.Item) app.UI {
	t := n.t()
	role := session.Role()
	current := n.path

	entries := make([]app.UI, 0, len(items))
	for _, item := range items {
		class := "panel-item navbar-accent-" + item.Color
		if navigation.IsActive(item.Path, current) {
			class += " panel-item-active"
		}
		entries = append(entries, app.Li().Body(
			app.A().Href(item.Path).Class(class).OnClick(n.onSelect(item)).Body(
				app.Span().Class("navbar-icon").Text(glyph(item.Icon)),
				app.Span().Text(item.Label),
			),
		))
	}

	sections := []app.UI{
		app.Div().Class("panel-header").Body(
			app.Span().Class("panel-title").Text(n.siteName()),
			app.Button().Type("button").Class("panel-close").Aria("label", t.T("closeMenu")).
				OnClick(n.onCloseMenu).Text("✕"),
		),
		n.renderPanelUser(session),
		app.H3().Class("panel-section").Text(t.T("mainMenu")),
		app.Ul().Class("panel-menu").Body(entries...),
		app.H3().Class("panel-section").Text(t.T("quickTools")),
	}

	var quick []app.UI
	if role == navigation.Regular {
		quick = append(quick,
			n.panelAction("🛒", t.T("cart"), fmt.Sprintf("%d %s", n.cartCount, t.T("items")), n.cartCount, n.goTo("/cart")),
			n.panelAction("❤️", t.T("favorites"), fmt.Sprintf("%d %s", n.favCount, t.T("favs")), n.favCount, n.goTo("/favorites")),
		)
	}
	if session.User != nil || session.IsGuest {
		quick = append(quick, n.panelAction("🚪", t.T("logout"), t.T("secureLogout"), 0, n.onLogout))
	} else {
		quick = append(quick, n.panelAction("🔑", t.T("login"), t.T("quickLogin"), 0, n.goTo("/login")))
	}
	sections = append(sections,
		app.Div().Class("panel-quick").Body(quick...),
		app.Div().Class("panel-toggles").Body(
			app.Span().Class("panel-label").Text(t.T("language")),
			app.Span().Class("panel-label").Text(n.themeLabel()),
			app.Div().Class("navbar-tools").Body(n.renderToggles()...),
		),
		app.Footer().Class("panel-footer").Text(fmt.Sprintf("%s © %d", n.siteName(), time.Now().Year())),
	)

	return app.Aside().Class("navbar-panel").Body(sections...)
}

func (n *NavBar) renderPanelUser(session navigation.Session) app.UI {
	t := n.t()
	if session.User == nil && !session.IsGuest {
		return app.Div().Class("panel-auth").Body(
			app.Button().Type("button").Class("btn btn-ghost").OnClick(n.goTo("/login")).Text(t.T("login")),
			app.Button().Type("button").Class("btn btn-primary").OnClick(n.goTo("/signup")).Text(t.T("signup")),
		)
	}
	body := []app.UI{
		app.Span().Class("navbar-avatar").Text("👤"),
		app.Span().Class("navbar-username").Text(session.DisplayName(t)),
	}
	if session.User != nil {
		body = append(body, app.Span().Class("panel-email").Text(session.User.Email))
	}
	if !session.IsGuest {
		role := "👤 " + t.T("roleUser")
		if session.IsAdmin {
			role = "👑 " + t.T("roleAdmin")
		}
		body = append(body, app.Span().Class("panel-role").Text(role))
	}
	return app.Div().Class("panel-user").Body(body...)
}

func (n *NavBar) panelAction(icon, title, subtitle string, count int, h app.EventHandler) app.UI {
	iconBody := []app.UI{app.Span().Text(icon)}
	if text, visible := navigation.Badge(count); visible {
		iconBody = append(iconBody, app.Span().Class("navbar-badge").Text(text))
	}
	return app.Button().
		Type("button").
		Class("panel-action").
		OnClick(h).
		Body(
			app.Span().Class("panel-action-icon").Body(iconBody...),
			app.Span().Class("panel-action-title").Text(title),
			app.Span().Class("panel-action-subtitle").Text(subtitle),
		)
}

func (n *NavBar) themeLabel() string {
	if n.prefs.Theme == navigation.ThemeDark {
		return n.t().T("darkTheme")
	}
	return n.t().T("lightTheme")
}

func (n *NavBar) instagramURL() string {
	if n.cfg.InstagramURL != "" {
		return n.cfg.InstagramURL
	}
	return "https://www.instagram.com/"
}
