package webapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/drummonds/goStorefront/navigation"
)

// clientConfig mirrors the JSON served at /api/config
type clientConfig struct {
	SiteName         string  `json:"siteName"`
	DefaultLanguage  string  `json:"defaultLanguage"`
	DefaultTheme     string  `json:"defaultTheme"`
	InstagramURL     string  `json:"instagramUrl"`
	ScrollThreshold  float64 `json:"scrollThreshold"`
	DetectedLanguage string  `json:"detectedLanguage"`
}

// Product is a catalog entry as served by the API
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceCents   int64  `json:"priceCents"`
	ImageURL     string `json:"imageUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	PreviewURL   string `json:"previewUrl"`
}

// Favorite is a favorite product as served by the API
type Favorite struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
}

// CartItem is a cart line as served by the API
type CartItem struct {
	navigation.CartLine
	Name string `json:"name"`
}

// apiClient talks to the storefront server. In the browser net/http goes through fetch,
// so the session cookie is sent along with every same origin request
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{base: base, http: &http.Client{Timeout: 15 * time.Second}}
}

// originOf returns scheme://host of u
func originOf(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (a *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		json.NewDecoder(res.Body).Decode(&payload)
		return &apiError{Status: res.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

func (a *apiClient) Config(ctx context.Context) (clientConfig, error) {
	var cfg clientConfig
	err := a.do(ctx, http.MethodGet, "/api/config", nil, "", &cfg)
	return cfg, err
}

func (a *apiClient) Session(ctx context.Context) (navigation.Session, error) {
	var s navigation.Session
	err := a.do(ctx, http.MethodGet, "/api/session", nil, "", &s)
	return s, err
}

func (a *apiClient) StartGuest(ctx context.Context) (navigation.Session, error) {
	var s navigation.Session
	err := a.do(ctx, http.MethodPost, "/api/session/guest", nil, "", &s)
	return s, err
}

// SignOut ends the session on the server
func (a *apiClient) SignOut(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/logout", nil, "", nil)
}

func (a *apiClient) Cart(ctx context.Context, userID string) ([]CartItem, error) {
	var items []CartItem
	err := a.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/cart", nil, "", &items)
	return items, err
}

func (a *apiClient) SetCartQuantity(ctx context.Context, userID, productID string, quantity int) ([]CartItem, error) {
	body, _ := json.Marshal(map[string]int{"quantity": quantity})
	var items []CartItem
	err := a.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(userID)+"/cart/"+url.PathEscape(productID),
		bytes.NewReader(body), "application/json", &items)
	return items, err
}

func (a *apiClient) Favorites(ctx context.Context, userID string) ([]Favorite, error) {
	var favorites []Favorite
	err := a.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/favorites", nil, "", &favorites)
	return favorites, err
}

func (a *apiClient) AddFavorite(ctx context.Context, userID, productID string) ([]Favorite, error) {
	var favorites []Favorite
	err := a.do(ctx, http.MethodPost, "/api/users/"+url.PathEscape(userID)+"/favorites/"+url.PathEscape(productID), nil, "", &favorites)
	return favorites, err
}

func (a *apiClient) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	err := a.do(ctx, http.MethodGet, "/api/products", nil, "", &products)
	return products, err
}

func (a *apiClient) Search(ctx context.Context, term string) ([]Product, error) {
	var products []Product
	err := a.do(ctx, http.MethodGet, "/api/products/search?term="+url.QueryEscape(term), nil, "", &products)
	return products, err
}

func (a *apiClient) CreateProduct(ctx context.Context, name, description string, priceCents int64) (Product, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("name", name)
	w.WriteField("description", description)
	w.WriteField("price", strconv.FormatInt(priceCents, 10))
	if err := w.Close(); err != nil {
		return Product{}, err
	}
	var p Product
	err := a.do(ctx, http.MethodPost, "/api/products", &buf, w.FormDataContentType(), &p)
	return p, err
}

// counts returns the cart quantity total and the favorites count of a session.
// Missing data counts as zero
func (a *apiClient) counts(ctx context.Context, s navigation.Session) (cart int, favorites int, err error) {
	if s.Role() != navigation.Regular {
		return 0, 0, nil
	}
	items, cartErr := a.Cart(ctx, s.User.ID)
	lines := make([]navigation.CartLine, len(items))
	for i, it := range items {
		lines[i] = it.CartLine
	}
	favs, favErr := a.Favorites(ctx, s.User.ID)
	if cartErr != nil {
		err = cartErr
	} else if favErr != nil {
		err = favErr
	}
	return navigation.CartCount(lines), len(favs), err
}
