package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/goStorefront/config"
	database "github.com/drummonds/goStorefront/database"
	engine "github.com/drummonds/goStorefront/engine"
	"github.com/drummonds/goStorefront/i18n"
	"github.com/drummonds/goStorefront/webapp"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

func main() {
	// Parse command-line flags
	devMode := flag.Bool("dev", false, "Run in development mode with ephemeral PostgreSQL and demo accounts")
	flag.Parse()

	serverConfig, logger, err := config.SetupServer()
	if err != nil {
		fmt.Println("Unable to load config:", err)
		os.Exit(1)
	}
	injectGlobals(logger) //inject the logger into all of the packages

	// Setup database based on dev mode or configuration
	var db database.DBInterface
	if *devMode {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("🚀  DEVELOPMENT MODE - Ephemeral PostgreSQL")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("• Database will be destroyed on exit")
		fmt.Println("• Demo admin and customer accounts are created")
		fmt.Println(strings.Repeat("=", 50) + "\n")

		Logger.Info("Starting ephemeral PostgreSQL for development")
		ephemeralDB, err := database.SetupEphemeralPostgresDatabase()
		if err != nil {
			Logger.Error("Failed to setup ephemeral PostgreSQL", "error", err)
			os.Exit(1)
		}
		db = ephemeralDB
		// Ensure cleanup happens on exit
		defer func() {
			Logger.Info("Shutting down ephemeral PostgreSQL...")
			ephemeralDB.Close()
		}()
		if err := seedDemo(db); err != nil {
			Logger.Error("Unable to seed demo data", "error", err)
			os.Exit(1)
		}
	} else {
		Logger.Info("About to setup database", "type", serverConfig.DatabaseType)
		db, err = database.SetupDatabase(serverConfig.DatabaseType, serverConfig.DatabaseConnString, serverConfig.SQLitePath)
		if err != nil {
			Logger.Error("Unable to setup database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}
	Logger.Info("Database setup complete, about to setup search DB")
	searchDB, err := database.SetupSearchDB(serverConfig.SearchIndexPath)
	if err != nil {
		Logger.Error("Unable to setup index database", "error", err)
		os.Exit(1)
	}
	Logger.Info("Search DB setup complete")
	defer searchDB.Close()

	e, serverHandler, err := newServer(serverConfig, db, searchDB)
	if err != nil {
		Logger.Error("Unable to setup server", "error", err)
		os.Exit(1)
	}
	Logger.Info("About to initialize schedules")
	scheduler, err := serverHandler.InitializeSchedules() //initialize all the cron jobs
	if err != nil {
		Logger.Error("Unable to initialize schedules", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()
	Logger.Info("Schedules initialized, about to run startup checks")
	if err := serverHandler.StartupChecks(); err != nil { //Run all the sanity checks
		Logger.Warn("Startup checks reported a problem", "error", err)
	}

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		// Check if error is "address already in use"
		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			// Increment port for next attempt
			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				os.Exit(1)
			}
		} else if startErr != nil {
			// Some other error occurred
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			break
		}
	}

	if startErr == nil && serverConfig.ListenAddrPort != startPort {
		Logger.Warn("Server started on alternative port due to conflicts",
			"requested_port", startPort,
			"actual_port", serverConfig.ListenAddrPort)
	}
}

// newServer builds the echo server with the API, the static assets and the go-app UI
func newServer(serverConfig config.ServerConfig, db database.DBInterface, searchDB bleve.Index) (*echo.Echo, *engine.ServerHandler, error) {
	bundle, err := i18n.Load()
	if err != nil {
		return nil, nil, err
	}
	e := echo.New()
	e.HideBanner = true
	serverHandler := &engine.ServerHandler{DB: db, SearchDB: searchDB, Echo: e, ServerConfig: serverConfig, Bundle: bundle} //injecting the database into the handler for routes
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	serverHandler.RegisterRoutes()

	Logger.Info("Setting up go-app WASM UI")
	appHandler := webapp.Handler(serverConfig.SiteName)

	// Serve wasm_exec.js (go-app expects it here)
	e.GET("/wasm_exec.js", func(c echo.Context) error {
		return c.File("web/wasm_exec.js")
	})

	// Register go-app specific resources
	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))
	e.GET("/manifest.webmanifest", echo.WrapHandler(appHandler))

	// Serve static assets
	e.Static("/web", "web")
	e.File("/webapp/webapp.css", "webapp/webapp.css")

	// Serve go-app handler for all other routes (must be last)
	e.Any("/*", echo.WrapHandler(appHandler))
	return e, serverHandler, nil
}

// seedDemo creates the demo accounts and a couple of products for --dev
func seedDemo(db database.DBInterface) error {
	for _, account := range []struct {
		email   string
		isAdmin bool
	}{
		{"admin@storefront.local", true},
		{"customer@storefront.local", false},
	} {
		user, err := db.CreateUser(account.email, account.isAdmin)
		if err != nil {
			return err
		}
		session, err := db.CreateSession(user.ID, false, 24*365*time.Hour)
		if err != nil {
			return err
		}
		Logger.Info("Demo account ready, set this cookie to sign in", "email", account.email, "cookie", engine.SessionCookie+"="+session.Token)
	}
	for _, p := range []database.Product{
		{Name: "Crescent ring", Description: "Sterling silver ring with a hammered finish", PriceCents: 4500},
		{Name: "Rooster pendant", Description: "Hand engraved silver pendant on a fine chain", PriceCents: 7900},
	} {
		product := p
		if err := db.SaveProduct(&product); err != nil {
			return err
		}
	}
	return nil
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "address already in use")
}
