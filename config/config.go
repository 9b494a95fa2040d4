package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings defined in the TOML file
type ServerConfig struct {
	ListenAddrIP       string
	ListenAddrPort     string
	DatabaseType       string // sqlite or postgres
	DatabaseConnString string // postgres only
	SQLitePath         string
	SearchIndexPath    string
	ImagePath          string //where product images and thumbnails are written
	ThumbnailWidth     int
	SessionTTLHours    int
	SweepInterval      int //minutes between expired session sweeps
	FrontEndConfig
}

// FrontEndConfig is the part of the config the WASM client reads from /api/config
type FrontEndConfig struct {
	SiteName        string  `json:"siteName"`
	DefaultLanguage string  `json:"defaultLanguage"`
	DefaultTheme    string  `json:"defaultTheme"`
	InstagramURL    string  `json:"instagramUrl"`
	ScrollThreshold float64 `json:"scrollThreshold"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serverConfig.ServerAddr", "")
	v.SetDefault("serverConfig.ServerPort", "8000")
	v.SetDefault("database.Type", "sqlite")
	v.SetDefault("database.SQLitePath", "databases/storefront.db")
	v.SetDefault("search.IndexPath", "databases/products.bleve")
	v.SetDefault("catalog.ImagePath", "images")
	v.SetDefault("catalog.ThumbnailWidth", 320)
	v.SetDefault("sessions.TTLHours", 72)
	v.SetDefault("sessions.SweepInterval", 30)
	v.SetDefault("storefront.Name", "Silver Rooster")
	v.SetDefault("storefront.DefaultLanguage", "en")
	v.SetDefault("storefront.DefaultTheme", "light")
	v.SetDefault("storefront.InstagramURL", "https://www.instagram.com/")
	v.SetDefault("storefront.ScrollThreshold", 10)
	v.SetDefault("logging.Level", "warn")
	v.SetDefault("logging.OutputPath", "stdout")
	v.SetDefault("logging.LogFileLocation", "storefront.log")
}

// Default returns the configuration used when no config file is present
func Default() ServerConfig {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

// SetupServer does the initial configuration
func SetupServer() (ServerConfig, *slog.Logger, error) {
	v := viper.New()
	setDefaults(v)
	v.AddConfigPath("config/")
	v.AddConfigPath(".")
	v.SetConfigName("serverConfig")
	v.SetEnvPrefix("STOREFRONT")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil { // Find and read the config file
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return ServerConfig{}, nil, fmt.Errorf("fatal error config file: %w", err)
		}
		fmt.Println("No serverConfig.toml found, using defaults")
	}
	logger := setupLogging(v)
	logger.Info("Base Logger is setup!")
	serverConfigLive := fromViper(v)
	for _, dir := range []string{filepath.Dir(serverConfigLive.SQLitePath), serverConfigLive.ImagePath} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			logger.Error("Unable to create directory", "path", dir, "error", err)
			return ServerConfig{}, nil, err
		}
	}
	logger.Info("Config loaded", "database", serverConfigLive.DatabaseType, "port", serverConfigLive.ListenAddrPort)
	return serverConfigLive, logger, nil
}

func fromViper(v *viper.Viper) ServerConfig {
	var serverConfigLive ServerConfig
	serverConfigLive.ListenAddrPort = v.GetString("serverConfig.ServerPort")
	serverConfigLive.ListenAddrIP = v.GetString("serverConfig.ServerAddr")
	serverConfigLive.DatabaseType = v.GetString("database.Type")
	serverConfigLive.DatabaseConnString = v.GetString("database.ConnString")
	serverConfigLive.SQLitePath = filepath.Clean(filepath.ToSlash(v.GetString("database.SQLitePath")))
	serverConfigLive.SearchIndexPath = filepath.Clean(filepath.ToSlash(v.GetString("search.IndexPath")))
	serverConfigLive.ImagePath = filepath.Clean(filepath.ToSlash(v.GetString("catalog.ImagePath")))
	serverConfigLive.ThumbnailWidth = v.GetInt("catalog.ThumbnailWidth")
	serverConfigLive.SessionTTLHours = v.GetInt("sessions.TTLHours")
	serverConfigLive.SweepInterval = v.GetInt("sessions.SweepInterval")
	serverConfigLive.FrontEndConfig = FrontEndConfig{
		SiteName:        v.GetString("storefront.Name"),
		DefaultLanguage: v.GetString("storefront.DefaultLanguage"),
		DefaultTheme:    v.GetString("storefront.DefaultTheme"),
		InstagramURL:    v.GetString("storefront.InstagramURL"),
		ScrollThreshold: v.GetFloat64("storefront.ScrollThreshold"),
	}
	return serverConfigLive
}

func parseLevel(logLevelString string) slog.Level {
	switch logLevelString {
	case "Debug", "debug":
		return slog.LevelDebug
	case "Info", "info":
		return slog.LevelInfo
	case "Warn", "warn":
		return slog.LevelWarn
	case "Error", "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func setupLogging(v *viper.Viper) *slog.Logger {
	loglevel := parseLevel(v.GetString("logging.Level"))

	var logWriter io.Writer
	logOutput := v.GetString("logging.OutputPath")
	if logOutput == "file" {
		logPath, err := filepath.Abs(filepath.ToSlash(v.GetString("logging.LogFileLocation")))
		if err != nil {
			fmt.Println("Unable to create log file path: ", err)
			logPath = "output.log"
		}
		logFile, err := os.Create(logPath)
		if err != nil {
			fmt.Println("Unable to create log file: ", err)
			logWriter = os.Stdout
		} else {
			logWriter = logFile
			fmt.Println("Logging to file: ", logPath)
		}
	} else {
		logWriter = os.Stdout
		fmt.Println("Will be logging to stdout...")
	}

	opts := &slog.HandlerOptions{
		Level: loglevel,
	}
	handler := slog.NewTextHandler(logWriter, opts)
	logger := slog.New(handler)
	return logger
}
