package webapp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/drummonds/goStorefront/navigation"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// preferencesChanged is the action the NavBar fires when language or theme is toggled
const preferencesChanged = "preferences-changed"

// page holds what every routed page needs: the API, the session and the display preferences
type page struct {
	api     *apiClient
	prefs   navigation.Preferences
	session navigation.Session
	loading bool
	err     string
}

func (p *page) mount(ctx app.Context) {
	p.prefs = navigation.Preferences{}.Normalize()
	if !app.IsClient {
		return
	}
	p.api = newAPIClient(originOf(app.Window().URL()))
	p.prefs = loadPreferences(ctx, clientConfig{})
	ctx.Handle(preferencesChanged, func(ctx app.Context, a app.Action) {
		if prefs, ok := a.Value.(navigation.Preferences); ok {
			p.prefs = prefs
		}
	})
}

func (p *page) t() navigation.Translator {
	return bundle.For(p.prefs.Language)
}

// loadSession waits out a pending sign-out, fetches the session, then calls next on the UI goroutine
func (p *page) loadSession(ctx app.Context, next func(ctx app.Context)) {
	api := p.api
	p.loading = true
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := shared.Settle(reqCtx); err != nil {
			app.Logf("sign out still pending: %v", err)
		}
		remote, err := api.Session(reqCtx)
		if err != nil {
			remote = navigation.Session{}
		}
		session := shared.Adopt(remote)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				app.Logf("unable to load session: %v", err)
			}
			p.session = session
			p.loading = false
			if next != nil {
				next(ctx)
			}
		})
	})
}

func (p *page) status() app.UI {
	switch {
	case p.loading:
		return app.Div().Class("loading").Text("…")
	case p.err != "":
		return app.Div().Class("error").Text(p.err)
	}
	return app.Text("")
}

// layout wraps page content with the navigation bar and the site footer
func layout(t navigation.Translator, content ...app.UI) app.UI {
	return app.Div().
		Class("app-container").
		Body(
			&NavBar{},
			app.Main().Class("content").Body(content...),
			app.Footer().Class("site-footer").Text(
				fmt.Sprintf("© %d %s. %s", time.Now().Year(), t.T("siteName"), t.T("allRightsReserved")),
			),
		)
}

func formatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// HomePage is the landing page with a few featured products
type HomePage struct {
	app.Compo
	page
	products []Product
}

func (h *HomePage) OnMount(ctx app.Context) {
	h.mount(ctx)
	if !app.IsClient {
		return
	}
	h.loading = true
	api := h.api
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		products, err := api.Products(reqCtx)
		ctx.Dispatch(func(ctx app.Context) {
			h.loading = false
			if err != nil {
				app.Logf("unable to load products: %v", err)
				h.err = h.t().T("errorLoading")
				return
			}
			if len(products) > 4 {
				products = products[:4]
			}
			h.products = products
		})
	})
}

func (h *HomePage) Render() app.UI {
	t := h.t()
	return layout(t,
		app.Section().Class("hero").Body(
			app.H2().Text(t.T("heroTitle")),
			app.P().Text(t.T("heroBody")),
			app.A().Href("/products").Class("btn btn-primary").Text(t.T("products")),
		),
		app.H3().Text(t.T("featured")),
		h.status(),
		productGrid(h.products, nil),
	)
}

// productGrid renders product cards; actions, when set, adds buttons under each card
func productGrid(products []Product, actions func(p Product) []app.UI) app.UI {
	cards := make([]app.UI, 0, len(products))
	for _, p := range products {
		body := []app.UI{}
		if p.ThumbnailURL != "" {
			body = append(body, app.Img().Src(p.ThumbnailURL).Alt(p.Name).Class("product-thumb"))
		}
		body = append(body,
			app.H4().Text(p.Name),
			app.P().Class("product-description").Text(p.Description),
			app.Span().Class("product-price").Text(formatPrice(p.PriceCents)),
		)
		if p.PreviewURL != "" {
			body = append(body, app.A().Href(p.PreviewURL).Target("_blank").Class("product-datasheet").Text("📄"))
		}
		if actions != nil {
			body = append(body, app.Div().Class("product-actions").Body(actions(p)...))
		}
		cards = append(cards, app.Div().Class("product-card").Body(body...))
	}
	return app.Div().Class("product-grid").Body(cards...)
}

// ProductsPage lists the catalog with a search box
type ProductsPage struct {
	app.Compo
	page
	products []Product
	term     string
	message  string
}

func (pp *ProductsPage) OnMount(ctx app.Context) {
	pp.mount(ctx)
	if !app.IsClient {
		return
	}
	pp.loadSession(ctx, pp.fetch)
}

func (pp *ProductsPage) fetch(ctx app.Context) {
	api, term := pp.api, strings.TrimSpace(pp.term)
	pp.loading = true
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		var (
			products []Product
			err      error
		)
		if term == "" {
			products, err = api.Products(reqCtx)
		} else {
			products, err = api.Search(reqCtx, term)
		}
		ctx.Dispatch(func(ctx app.Context) {
			pp.loading = false
			if err != nil {
				app.Logf("unable to load products: %v", err)
				pp.err = pp.t().T("errorLoading")
				return
			}
			pp.err = ""
			pp.products = products
		})
	})
}

func (pp *ProductsPage) onSearch(ctx app.Context, e app.Event) {
	e.PreventDefault()
	pp.fetch(ctx)
}

func (pp *ProductsPage) addToCart(p Product) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		api, userID, msg := pp.api, pp.session.User.ID, pp.t().T("addedToCart")
		ctx.Async(func() {
			reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			items, err := api.Cart(reqCtx, userID)
			quantity := 1
			if err == nil {
				for _, it := range items {
					if it.ProductID == p.ID {
						quantity = it.Quantity + 1
					}
				}
				_, err = api.SetCartQuantity(reqCtx, userID, p.ID, quantity)
			}
			ctx.Dispatch(func(ctx app.Context) {
				if err != nil {
					app.Logf("unable to update cart: %v", err)
					pp.message = pp.t().T("errorLoading")
					return
				}
				pp.message = msg
			})
		})
	}
}

func (pp *ProductsPage) addToFavorites(p Product) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		api, userID, msg := pp.api, pp.session.User.ID, pp.t().T("addedToFavorites")
		ctx.Async(func() {
			reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_, err := api.AddFavorite(reqCtx, userID, p.ID)
			ctx.Dispatch(func(ctx app.Context) {
				if err != nil {
					app.Logf("unable to add favorite: %v", err)
					pp.message = pp.t().T("errorLoading")
					return
				}
				pp.message = msg
			})
		})
	}
}

func (pp *ProductsPage) Render() app.UI {
	t := pp.t()
	var actions func(p Product) []app.UI
	if pp.session.Role() == navigation.Regular {
		actions = func(p Product) []app.UI {
			return []app.UI{
				app.Button().Type("button").Class("btn btn-primary").OnClick(pp.addToCart(p)).Text("🛒 " + t.T("addToCart")),
				app.Button().Type("button").Class("btn btn-ghost").OnClick(pp.addToFavorites(p)).Text("❤️"),
			}
		}
	}
	var results app.UI = productGrid(pp.products, actions)
	if !pp.loading && pp.err == "" && len(pp.products) == 0 {
		results = app.P().Class("empty").Text(t.T("noResults"))
	}
	return layout(t,
		app.H2().Text(t.T("products")),
		app.Form().Class("search-form").OnSubmit(pp.onSearch).Body(
			app.Input().
				Type("search").
				Placeholder(t.T("search")).
				Value(pp.term).
				OnChange(bindValue(&pp.term)),
			app.Button().Type("submit").Class("btn").Text("🔍"),
		),
		app.P().Class("notice").Text(pp.message),
		pp.status(),
		results,
	)
}

// bindValue stores an input's value into dst on change
func bindValue(dst *string) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		*dst = ctx.JSSrc().Get("value").String()
	}
}

// InfoPage is a static page whose title and body come from the locale files
type InfoPage struct {
	app.Compo
	page
	Key string
}

func (ip *InfoPage) OnMount(ctx app.Context) {
	ip.mount(ctx)
	if !app.IsClient {
		return
	}
	ip.loadSession(ctx, nil)
}

func (ip *InfoPage) onGuest(ctx app.Context, e app.Event) {
	api := ip.api
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		session, err := api.StartGuest(reqCtx)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				app.Logf("unable to start guest session: %v", err)
				ip.err = ip.t().T("errorLoading")
				return
			}
			shared.Start(session)
			ctx.Navigate(navigation.HomePath)
		})
	})
}

func (ip *InfoPage) Render() app.UI {
	t := ip.t()
	content := []app.UI{
		app.H2().Text(t.T(ip.Key)),
		app.P().Class("info-body").Text(t.T(ip.Key + "Body")),
	}
	if (ip.Key == "login" || ip.Key == "signup") && ip.session.Role() == navigation.Anonymous {
		content = append(content,
			app.Button().Type("button").Class("btn btn-primary").OnClick(ip.onGuest).Text(t.T("continueAsGuest")),
		)
	}
	content = append(content, ip.status())
	return layout(t, content...)
}

// CartPage shows the cart of the signed-in user
type CartPage struct {
	app.Compo
	page
	items []CartItem
}

func (cp *CartPage) OnMount(ctx app.Context) {
	cp.mount(ctx)
	if !app.IsClient {
		return
	}
	cp.loadSession(ctx, cp.fetch)
}

func (cp *CartPage) fetch(ctx app.Context) {
	if cp.session.Role() != navigation.Regular {
		return
	}
	api, userID := cp.api, cp.session.User.ID
	cp.loading = true
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		items, err := api.Cart(reqCtx, userID)
		ctx.Dispatch(func(ctx app.Context) {
			cp.loading = false
			if err != nil {
				app.Logf("unable to load cart: %v", err)
				cp.err = cp.t().T("errorLoading")
				return
			}
			cp.items = items
		})
	})
}

func (cp *CartPage) setQuantity(productID string, quantity int) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		api, userID := cp.api, cp.session.User.ID
		ctx.Async(func() {
			reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			items, err := api.SetCartQuantity(reqCtx, userID, productID, quantity)
			ctx.Dispatch(func(ctx app.Context) {
				if err != nil {
					app.Logf("unable to update cart: %v", err)
					cp.err = cp.t().T("errorLoading")
					return
				}
				cp.items = items
			})
		})
	}
}

func (cp *CartPage) Render() app.UI {
	t := cp.t()
	content := []app.UI{app.H2().Text(t.T("cart")), cp.status()}
	switch {
	case cp.loading:
	case cp.session.Role() != navigation.Regular:
		content = append(content, app.P().Class("empty").Text(t.T("signInRequired")))
	case len(cp.items) == 0:
		content = append(content, app.P().Class("empty").Text(t.T("emptyCart")))
	default:
		lines := make([]app.UI, 0, len(cp.items))
		for _, it := range cp.items {
			lines = append(lines, app.Li().Class("cart-line").Body(
				app.Span().Class("cart-name").Text(it.Name),
				app.Button().Type("button").Class("btn").OnClick(cp.setQuantity(it.ProductID, it.Quantity-1)).Text("−"),
				app.Span().Class("cart-quantity").Text(strconv.Itoa(it.Quantity)),
				app.Button().Type("button").Class("btn").OnClick(cp.setQuantity(it.ProductID, it.Quantity+1)).Text("+"),
				app.Button().Type("button").Class("btn btn-ghost").OnClick(cp.setQuantity(it.ProductID, 0)).Text(t.T("remove")),
			))
		}
		content = append(content, app.Ul().Class("cart-lines").Body(lines...))
	}
	return layout(t, content...)
}

// FavoritesPage lists the favorite products of the signed-in user
type FavoritesPage struct {
	app.Compo
	page
	favorites []Favorite
}

func (fp *FavoritesPage) OnMount(ctx app.Context) {
	fp.mount(ctx)
	if !app.IsClient {
		return
	}
	fp.loadSession(ctx, fp.fetch)
}

func (fp *FavoritesPage) fetch(ctx app.Context) {
	if fp.session.Role() != navigation.Regular {
		return
	}
	api, userID := fp.api, fp.session.User.ID
	fp.loading = true
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		favorites, err := api.Favorites(reqCtx, userID)
		ctx.Dispatch(func(ctx app.Context) {
			fp.loading = false
			if err != nil {
				app.Logf("unable to load favorites: %v", err)
				fp.err = fp.t().T("errorLoading")
				return
			}
			fp.favorites = favorites
		})
	})
}

func (fp *FavoritesPage) Render() app.UI {
	t := fp.t()
	content := []app.UI{app.H2().Text(t.T("favorites")), fp.status()}
	switch {
	case fp.loading:
	case fp.session.Role() != navigation.Regular:
		content = append(content, app.P().Class("empty").Text(t.T("signInRequired")))
	case len(fp.favorites) == 0:
		content = append(content, app.P().Class("empty").Text(t.T("emptyFavorites")))
	default:
		entries := make([]app.UI, 0, len(fp.favorites))
		for _, f := range fp.favorites {
			entries = append(entries, app.Li().Text("❤️ "+f.Name))
		}
		content = append(content, app.Ul().Class("favorite-list").Body(entries...))
	}
	return layout(t, content...)
}

// AddProductPage is the admin form for new catalog entries
type AddProductPage struct {
	app.Compo
	page
	name        string
	description string
	price       string
	message     string
}

func (ap *AddProductPage) OnMount(ctx app.Context) {
	ap.mount(ctx)
	if !app.IsClient {
		return
	}
	ap.loadSession(ctx, nil)
}

func (ap *AddProductPage) onSubmit(ctx app.Context, e app.Event) {
	e.PreventDefault()
	t := ap.t()
	price, err := strconv.ParseFloat(strings.TrimSpace(ap.price), 64)
	if err != nil || price < 0 {
		ap.err = t.T("invalidPrice")
		return
	}
	api, name, description := ap.api, ap.name, ap.description
	cents := int64(price*100 + 0.5)
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		product, err := api.CreateProduct(reqCtx, name, description, cents)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				app.Logf("unable to create product: %v", err)
				ap.err = t.T("errorLoading")
				return
			}
			ap.err = ""
			ap.message = t.T("productSaved") + ": " + product.Name
			ap.name, ap.description, ap.price = "", "", ""
		})
	})
}

func (ap *AddProductPage) Render() app.UI {
	t := ap.t()
	content := []app.UI{app.H2().Text(t.T("addProduct")), ap.status()}
	if !ap.loading && ap.session.Role() != navigation.Admin {
		content = append(content, app.P().Class("empty").Text(t.T("adminOnly")))
		return layout(t, content...)
	}
	content = append(content,
		app.Form().Class("product-form").OnSubmit(ap.onSubmit).Body(
			app.Label().Text(t.T("name")),
			app.Input().Type("text").Required(true).Value(ap.name).OnChange(bindValue(&ap.name)),
			app.Label().Text(t.T("description")),
			app.Textarea().Text(ap.description).OnChange(bindValue(&ap.description)),
			app.Label().Text(t.T("price")),
			app.Input().Type("text").Value(ap.price).OnChange(bindValue(&ap.price)),
			app.Button().Type("submit").Class("btn btn-primary").Text(t.T("save")),
		),
		app.P().Class("notice").Text(ap.message),
	)
	return layout(t, content...)
}
