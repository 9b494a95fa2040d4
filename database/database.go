package database

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ErrNotFound is returned when a row does not exist (or a session expired)
var ErrNotFound = errors.New("not found")

// User is a storefront account
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// Session is a browser session, either tied to a user or a guest
type Session struct {
	Token     string
	User      *User // nil for guest sessions
	IsGuest   bool
	ExpiresAt time.Time
}

// Product is a catalog entry
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PriceCents    int64  `json:"priceCents"`
	ImageURL      string `json:"imageUrl"`
	ThumbnailURL  string `json:"thumbnailUrl"`
	DatasheetText string `json:"-"`
	PreviewURL    string `json:"previewUrl"`
}

// CartLine is one product in a user's cart
type CartLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Favorite is one product in a user's favorites
type Favorite struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
}

// DBInterface defines database operations shared by SQLite and PostgreSQL
type DBInterface interface {
	Close() error
	CreateUser(email string, isAdmin bool) (*User, error)
	GetUser(id string) (*User, error)
	CreateSession(userID string, isGuest bool, ttl time.Duration) (*Session, error)
	GetSession(token string, now time.Time) (*Session, error)
	DeleteSession(token string) error
	DeleteExpiredSessions(now time.Time) (int64, error)
	SaveProduct(product *Product) error
	GetProduct(id string) (*Product, error)
	ListProducts() ([]Product, error)
	GetCart(userID string) ([]CartLine, error)
	SetCartQuantity(userID, productID string, quantity int) error
	GetFavorites(userID string) ([]Favorite, error)
	AddFavorite(userID, productID string) error
	RemoveFavorite(userID, productID string) error
}

// SetupDatabase opens the database selected in the config
func SetupDatabase(dbType string, connString string, sqlitePath string) (DBInterface, error) {
	switch dbType {
	case "postgres":
		Logger.Info("Using PostgreSQL database")
		return SetupPostgresDatabase(connString)
	case "sqlite", "":
		Logger.Info("Using SQLite database", "path", sqlitePath)
		return SetupSQLiteDatabase(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown database type %q", dbType)
	}
}

// NewID returns a new sortable identifier for users and products
func NewID() string {
	return ulid.Make().String()
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
