package webapp

import (
	"net/http"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// Handler returns an HTTP handler for the web app
func Handler(siteName string) http.Handler {
	RegisterRoutes()

	// wasm_exec.js is served at /wasm_exec.js by Echo
	// app.wasm is served from /web/app.wasm by Echo
	return &app.Handler{
		Name:        siteName,
		Title:       siteName,
		ShortName:   siteName,
		Description: bundle.T("en", "siteTagline"),
		Lang:        "en",
		Icon: app.Icon{
			Default: "/web/logo.png",
		},
		Styles: []string{
			"/webapp/webapp.css",
		},
		RawHeaders: []string{
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
		},
	}
}
