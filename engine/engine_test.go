package engine

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/drummonds/goStorefront/config"
	"github.com/drummonds/goStorefront/database"
	"github.com/drummonds/goStorefront/i18n"
	"github.com/drummonds/goStorefront/navigation"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	Logger = logger
	database.Logger = logger
	os.Exit(m.Run())
}

type testServer struct {
	e       *echo.Echo
	handler *ServerHandler
	db      *database.SQLDB
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	db, err := database.SetupSQLiteDatabase(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	searchDB, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	require.NoError(t, err)
	t.Cleanup(func() {
		searchDB.Close()
		db.Close()
	})

	cfg := config.Default()
	cfg.ImagePath = filepath.Join(dir, "images")
	cfg.ThumbnailWidth = 8

	e := echo.New()
	e.HideBanner = true
	handler := &ServerHandler{DB: db, SearchDB: searchDB, Echo: e, ServerConfig: cfg, Bundle: i18n.MustLoad()}
	handler.RegisterRoutes()
	return &testServer{e: e, handler: handler, db: db}
}

func (ts *testServer) do(t *testing.T, method, target string, body io.Reader, contentType string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, email string, admin bool) (*database.User, *http.Cookie) {
	t.Helper()
	user, err := ts.db.CreateUser(email, admin)
	require.NoError(t, err)
	session, err := ts.db.CreateSession(user.ID, false, time.Hour)
	require.NoError(t, err)
	return user, &http.Cookie{Name: SessionCookie, Value: session.Token}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGetSession(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("anonymous without cookie", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/session", nil, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, navigation.Anonymous, decode[navigation.Session](t, rec).Role())
	})

	t.Run("anonymous with stale cookie", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/session", nil, "", &http.Cookie{Name: SessionCookie, Value: "stale"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, navigation.Anonymous, decode[navigation.Session](t, rec).Role())
	})

	t.Run("regular and admin", func(t *testing.T) {
		_, customer := ts.login(t, "buyer@example.com", false)
		rec := ts.do(t, http.MethodGet, "/api/session", nil, "", customer)
		s := decode[navigation.Session](t, rec)
		assert.Equal(t, navigation.Regular, s.Role())
		require.NotNil(t, s.User)
		assert.Equal(t, "buyer@example.com", s.User.Email)

		_, admin := ts.login(t, "owner@example.com", true)
		rec = ts.do(t, http.MethodGet, "/api/session", nil, "", admin)
		assert.Equal(t, navigation.Admin, decode[navigation.Session](t, rec).Role())
	})
}

func TestGuestSessionAndLogout(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/session/guest", nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, navigation.Guest, decode[navigation.Session](t, rec).Role())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, SessionCookie, cookie.Name)
	assert.True(t, cookie.HttpOnly)

	rec = ts.do(t, http.MethodGet, "/api/session", nil, "", cookie)
	assert.Equal(t, navigation.Guest, decode[navigation.Session](t, rec).Role())

	rec = ts.do(t, http.MethodPost, "/api/logout", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	rec = ts.do(t, http.MethodGet, "/api/session", nil, "", cookie)
	assert.Equal(t, navigation.Anonymous, decode[navigation.Session](t, rec).Role())

	rec = ts.do(t, http.MethodPost, "/api/logout", nil, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "logging out without a session is fine")
}

func TestCartAndFavoritesRoutes(t *testing.T) {
	ts := setupTestServer(t)
	user, cookie := ts.login(t, "buyer@example.com", false)
	_, other := ts.login(t, "other@example.com", false)
	product := &database.Product{Name: "Ring", PriceCents: 100}
	require.NoError(t, ts.db.SaveProduct(product))

	cartURL := "/api/users/" + user.ID + "/cart"

	rec := ts.do(t, http.MethodGet, cartURL, nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(t, http.MethodGet, cartURL, nil, "", other)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, cartURL, nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]navigation.CartLine](t, rec))

	rec = ts.do(t, http.MethodPut, cartURL+"/"+product.ID, strings.NewReader(`{"quantity":12}`), echo.MIMEApplicationJSON, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	lines := decode[[]navigation.CartLine](t, rec)
	assert.Equal(t, 12, navigation.CartCount(lines))
	badge, visible := navigation.Badge(navigation.CartCount(lines))
	assert.True(t, visible)
	assert.Equal(t, "9+", badge)

	rec = ts.do(t, http.MethodPut, cartURL+"/missing", strings.NewReader(`{"quantity":1}`), echo.MIMEApplicationJSON, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	favURL := "/api/users/" + user.ID + "/favorites"
	rec = ts.do(t, http.MethodPost, favURL+"/"+product.ID, nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]database.Favorite](t, rec), 1)

	rec = ts.do(t, http.MethodDelete, favURL+"/"+product.ID, nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]database.Favorite](t, rec))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for x := 0; x < 32; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func productForm(t *testing.T, fields map[string]string, fileField, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCreateProductAndSearch(t *testing.T) {
	ts := setupTestServer(t)
	_, admin := ts.login(t, "owner@example.com", true)
	_, customer := ts.login(t, "buyer@example.com", false)

	body, ct := productForm(t, map[string]string{"name": "Filigree earrings", "description": "Handmade filigree", "price": "5500"}, "image", "earrings.png", pngBytes(t))
	rec := ts.do(t, http.MethodPost, "/api/products", body, ct, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body, ct = productForm(t, map[string]string{"name": "Filigree earrings", "description": "Handmade filigree", "price": "5500"}, "image", "earrings.png", pngBytes(t))
	rec = ts.do(t, http.MethodPost, "/api/products", body, ct, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[database.Product](t, rec)
	assert.Equal(t, int64(5500), product.PriceCents)
	assert.Equal(t, "/images/"+product.ID+"_thumb.png", product.ThumbnailURL)

	thumbPath := filepath.Join(ts.handler.ServerConfig.ImagePath, product.ID+"_thumb.png")
	f, err := os.Open(thumbPath)
	require.NoError(t, err)
	thumb, err := png.Decode(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, 8, thumb.Bounds().Dx())
	assert.Equal(t, 4, thumb.Bounds().Dy())

	body, ct = productForm(t, map[string]string{"name": "Plain chain"}, "", "", nil)
	rec = ts.do(t, http.MethodPost, "/api/products", body, ct, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body, ct = productForm(t, map[string]string{"name": "Broken", "price": "-1"}, "", "", nil)
	rec = ts.do(t, http.MethodPost, "/api/products", body, ct, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/products", nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]database.Product](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/products/search?term=filigree", nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]database.Product](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, product.ID, found[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/products/search", nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/products/"+product.ID, nil, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/products/unknown", nil, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadDatasheetRejectsNonPDF(t *testing.T) {
	ts := setupTestServer(t)
	_, admin := ts.login(t, "owner@example.com", true)
	product := &database.Product{Name: "Ring"}
	require.NoError(t, ts.db.SaveProduct(product))

	body, ct := productForm(t, nil, "file", "notes.txt", []byte("plain text"))
	rec := ts.do(t, http.MethodPost, "/api/products/"+product.ID+"/datasheet", body, ct, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = productForm(t, nil, "file", "sheet.pdf", []byte("%PDF"))
	rec = ts.do(t, http.MethodPost, "/api/products/unknown/datasheet", body, ct, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetClientConfig(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	req.Header.Set("Accept-Language", "ar-EG,ar;q=0.9")
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[ClientConfig](t, rec)
	assert.Equal(t, "ar", cfg.DetectedLanguage)
	assert.Equal(t, float64(10), cfg.ScrollThreshold)

	rec = ts.do(t, http.MethodGet, "/api/config", nil, "", nil)
	assert.Equal(t, "en", decode[ClientConfig](t, rec).DetectedLanguage)
}

func TestSweepAndStartupChecks(t *testing.T) {
	ts := setupTestServer(t)
	user, err := ts.db.CreateUser("a@example.com", false)
	require.NoError(t, err)
	_, err = ts.db.CreateSession(user.ID, false, -time.Minute)
	require.NoError(t, err)
	live, err := ts.db.CreateSession(user.ID, false, time.Hour)
	require.NoError(t, err)
	require.NoError(t, ts.db.SaveProduct(&database.Product{Name: "Cuff"}))

	require.NoError(t, ts.handler.StartupChecks())

	removed, err := ts.db.DeleteExpiredSessions(time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed, "startup sweep already removed the expired session")
	_, err = ts.db.GetSession(live.Token, time.Now())
	assert.NoError(t, err)

	count, err := ts.handler.SearchDB.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestStartupChecksDropStaleSearchDocuments(t *testing.T) {
	ts := setupTestServer(t)
	cuff := &database.Product{Name: "Cuff"}
	require.NoError(t, ts.db.SaveProduct(cuff))
	require.NoError(t, database.IndexProduct(cuff, ts.handler.SearchDB))
	require.NoError(t, database.IndexProduct(&database.Product{ID: "gone", Name: "Bangle"}, ts.handler.SearchDB))

	require.NoError(t, ts.handler.StartupChecks())

	count, err := ts.handler.SearchDB.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestInitializeSchedules(t *testing.T) {
	ts := setupTestServer(t)
	c, err := ts.handler.InitializeSchedules()
	require.NoError(t, err)
	defer c.Stop()
	assert.Len(t, c.Entries(), 1)
}
