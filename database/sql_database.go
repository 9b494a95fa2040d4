package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLDB implements DBInterface for SQLite and PostgreSQL
type SQLDB struct {
	db      *sql.DB
	dialect string // "sqlite" or "postgres"
}

// SetupSQLiteDatabase initializes SQLite database with migrations
func SetupSQLiteDatabase(dbPath string) (*SQLDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLDB{db: db, dialect: "sqlite"}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLDB) migrateUp() error {
	var (
		driver migratedb.Driver
		err    error
	)
	switch s.dialect {
	case "postgres":
		driver, err = postgres.WithInstance(s.db, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.dialect, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	Logger.Info("Database migrations completed successfully", "dialect", s.dialect)
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *SQLDB) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection
func (s *SQLDB) Close() error {
	return s.db.Close()
}

// CreateUser adds a new account
func (s *SQLDB) CreateUser(email string, isAdmin bool) (*User, error) {
	user := &User{ID: NewID(), Email: email, IsAdmin: isAdmin}
	query := `INSERT INTO users (id, email, is_admin) VALUES (?, ?, ?)`
	if _, err := s.db.Exec(s.rebind(query), user.ID, user.Email, user.IsAdmin); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (s *SQLDB) GetUser(id string) (*User, error) {
	query := `SELECT id, email, is_admin FROM users WHERE id = ?`
	user := &User{}
	err := s.db.QueryRow(s.rebind(query), id).Scan(&user.ID, &user.Email, &user.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateSession starts a session for userID, or a guest session when userID is empty
func (s *SQLDB) CreateSession(userID string, isGuest bool, ttl time.Duration) (*Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	session := &Session{
		Token:     token,
		IsGuest:   isGuest,
		ExpiresAt: time.Now().Add(ttl).Truncate(time.Second),
	}
	var user sql.NullString
	if userID != "" {
		u, err := s.GetUser(userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session user: %w", err)
		}
		session.User = u
		user = sql.NullString{String: userID, Valid: true}
	}
	query := `INSERT INTO sessions (token, user_id, is_guest, expires_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.Exec(s.rebind(query), token, user, isGuest, session.ExpiresAt.Unix()); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession returns the live session for token
func (s *SQLDB) GetSession(token string, now time.Time) (*Session, error) {
	query := `SELECT s.token, s.is_guest, s.expires_at, u.id, u.email, u.is_admin
	          FROM sessions s LEFT JOIN users u ON u.id = s.user_id
	          WHERE s.token = ? AND s.expires_at > ?`
	var (
		session   Session
		expiresAt int64
		userID    sql.NullString
		email     sql.NullString
		isAdmin   sql.NullBool
	)
	err := s.db.QueryRow(s.rebind(query), token, now.Unix()).Scan(
		&session.Token, &session.IsGuest, &expiresAt, &userID, &email, &isAdmin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	session.ExpiresAt = time.Unix(expiresAt, 0)
	if userID.Valid {
		session.User = &User{ID: userID.String, Email: email.String, IsAdmin: isAdmin.Bool}
	}
	return &session, nil
}

// DeleteSession ends a session. Deleting an unknown token is not an error
func (s *SQLDB) DeleteSession(token string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM sessions WHERE token = ?`), token)
	return err
}

// DeleteExpiredSessions purges every session that expired before now
func (s *SQLDB) DeleteExpiredSessions(now time.Time) (int64, error) {
	res, err := s.db.Exec(s.rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveProduct inserts a new product (empty ID) or updates an existing one
func (s *SQLDB) SaveProduct(product *Product) error {
	if product.ID == "" {
		product.ID = NewID()
	}
	query := `
		INSERT INTO products (id, name, description, price_cents, image_url, thumbnail_url, datasheet_text, preview_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			price_cents = excluded.price_cents,
			image_url = excluded.image_url,
			thumbnail_url = excluded.thumbnail_url,
			datasheet_text = excluded.datasheet_text,
			preview_url = excluded.preview_url,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.Exec(s.rebind(query),
		product.ID, product.Name, product.Description, product.PriceCents,
		product.ImageURL, product.ThumbnailURL, product.DatasheetText, product.PreviewURL,
	)
	return err
}

// GetProduct retrieves a product by ID
func (s *SQLDB) GetProduct(id string) (*Product, error) {
	query := `SELECT id, name, description, price_cents, image_url, thumbnail_url, datasheet_text, preview_url
	          FROM products WHERE id = ?`
	product := &Product{}
	err := s.db.QueryRow(s.rebind(query), id).Scan(
		&product.ID, &product.Name, &product.Description, &product.PriceCents,
		&product.ImageURL, &product.ThumbnailURL, &product.DatasheetText, &product.PreviewURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ListProducts returns the whole catalog, oldest first
func (s *SQLDB) ListProducts() ([]Product, error) {
	query := `SELECT id, name, description, price_cents, image_url, thumbnail_url, datasheet_text, preview_url
	          FROM products ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p := Product{}
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.PriceCents,
			&p.ImageURL, &p.ThumbnailURL, &p.DatasheetText, &p.PreviewURL,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetCart returns the cart lines of a user
func (s *SQLDB) GetCart(userID string) ([]CartLine, error) {
	query := `SELECT c.product_id, p.name, c.quantity
	          FROM cart_items c JOIN products p ON p.id = c.product_id
	          WHERE c.user_id = ? ORDER BY c.product_id`
	rows, err := s.db.Query(s.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// SetCartQuantity sets the quantity of a product in the cart; zero or less removes it
func (s *SQLDB) SetCartQuantity(userID, productID string, quantity int) error {
	if quantity <= 0 {
		_, err := s.db.Exec(s.rebind(`DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`), userID, productID)
		return err
	}
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT(user_id, product_id) DO UPDATE SET quantity = excluded.quantity
	`
	_, err := s.db.Exec(s.rebind(query), userID, productID, quantity)
	return err
}

// GetFavorites returns the favorite products of a user
func (s *SQLDB) GetFavorites(userID string) ([]Favorite, error) {
	query := `SELECT f.product_id, p.name
	          FROM favorites f JOIN products p ON p.id = f.product_id
	          WHERE f.user_id = ? ORDER BY f.product_id`
	rows, err := s.db.Query(s.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ProductID, &f.Name); err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// AddFavorite marks a product as favorite; adding twice is a no-op
func (s *SQLDB) AddFavorite(userID, productID string) error {
	query := `INSERT INTO favorites (user_id, product_id) VALUES (?, ?) ON CONFLICT DO NOTHING`
	_, err := s.db.Exec(s.rebind(query), userID, productID)
	return err
}

// RemoveFavorite unmarks a product
func (s *SQLDB) RemoveFavorite(userID, productID string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM favorites WHERE user_id = ? AND product_id = ?`), userID, productID)
	return err
}
