package webapp

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// Routes maps every client path to the component that renders it
var Routes = map[string]func() app.Composer{
	"/":          func() app.Composer { return &HomePage{} },
	"/about":     func() app.Composer { return &InfoPage{Key: "about"} },
	"/products":  func() app.Composer { return &ProductsPage{} },
	"/contact":   func() app.Composer { return &InfoPage{Key: "contact"} },
	"/orders":    func() app.Composer { return &InfoPage{Key: "myOrders"} },
	"/favorites": func() app.Composer { return &FavoritesPage{} },
	"/cart":      func() app.Composer { return &CartPage{} },
	"/admin":     func() app.Composer { return &InfoPage{Key: "admin"} },
	"/admin/add": func() app.Composer { return &AddProductPage{} },
	"/login":     func() app.Composer { return &InfoPage{Key: "login"} },
	"/signup":    func() app.Composer { return &InfoPage{Key: "signup"} },
}

// RegisterRoutes registers the client routes; the server and the wasm binary must both call it
func RegisterRoutes() {
	for path, newCompo := range Routes {
		app.Route(path, newCompo)
	}
}
