//go:build js && wasm

package main

import (
	"github.com/drummonds/goStorefront/webapp"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

func main() {
	// Same routes as the server side handler
	webapp.RegisterRoutes()
	app.RunWhenOnBrowser()
}
