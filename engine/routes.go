package engine

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/blevesearch/bleve"
	"github.com/drummonds/goStorefront/config"
	"github.com/drummonds/goStorefront/database"
	"github.com/drummonds/goStorefront/i18n"
	"github.com/labstack/echo/v4"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.DBInterface
	SearchDB     bleve.Index
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Bundle       *i18n.Bundle
}

// ClientConfig is what the WASM client needs to render before any session exists
type ClientConfig struct {
	config.FrontEndConfig
	DetectedLanguage string `json:"detectedLanguage"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

// RegisterRoutes adds every API route to the echo server
func (serverHandler *ServerHandler) RegisterRoutes() {
	e := serverHandler.Echo
	api := e.Group("/api", serverHandler.LoadSession)
	api.GET("/config", serverHandler.GetClientConfig)
	api.GET("/session", serverHandler.GetSession)
	api.POST("/session/guest", serverHandler.StartGuestSession)
	api.POST("/logout", serverHandler.Logout)

	users := api.Group("/users/:id", serverHandler.RequireOwner)
	users.GET("/cart", serverHandler.GetCart)
	users.PUT("/cart/:product", serverHandler.SetCartQuantity)
	users.GET("/favorites", serverHandler.GetFavorites)
	users.POST("/favorites/:product", serverHandler.AddFavorite)
	users.DELETE("/favorites/:product", serverHandler.RemoveFavorite)

	api.GET("/products", serverHandler.ListProducts)
	api.GET("/products/search", serverHandler.SearchProducts)
	api.GET("/products/:id", serverHandler.GetProduct)
	api.POST("/products", serverHandler.CreateProduct, serverHandler.RequireAdmin)
	api.POST("/products/:id/datasheet", serverHandler.UploadDatasheet, serverHandler.RequireAdmin)

	e.Static("/images", serverHandler.ServerConfig.ImagePath)
}

// GetClientConfig returns the storefront settings and the language negotiated from the request
func (serverHandler *ServerHandler) GetClientConfig(c echo.Context) error {
	detected := serverHandler.ServerConfig.DefaultLanguage
	if accept := c.Request().Header.Get("Accept-Language"); accept != "" && serverHandler.Bundle != nil {
		detected = serverHandler.Bundle.Match(accept)
	}
	return c.JSON(http.StatusOK, ClientConfig{
		FrontEndConfig:   serverHandler.ServerConfig.FrontEndConfig,
		DetectedLanguage: detected,
	})
}

// GetCart returns the cart lines of a user
func (serverHandler *ServerHandler) GetCart(c echo.Context) error {
	lines, err := serverHandler.DB.GetCart(c.Param("id"))
	if err != nil {
		Logger.Error("Unable to fetch cart", "user", c.Param("id"), "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to fetch cart")
	}
	if lines == nil {
		lines = []database.CartLine{}
	}
	return c.JSON(http.StatusOK, lines)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetCartQuantity sets how many of a product are in the cart, zero removes the line
func (serverHandler *ServerHandler) SetCartQuantity(c echo.Context) error {
	var req quantityRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	productID := c.Param("product")
	if _, err := serverHandler.DB.GetProduct(productID); err != nil {
		return serverHandler.productLookupError(c, productID, err)
	}
	if err := serverHandler.DB.SetCartQuantity(c.Param("id"), productID, req.Quantity); err != nil {
		Logger.Error("Unable to update cart", "user", c.Param("id"), "product", productID, "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to update cart")
	}
	return serverHandler.GetCart(c)
}

// GetFavorites returns the favorite products of a user
func (serverHandler *ServerHandler) GetFavorites(c echo.Context) error {
	favorites, err := serverHandler.DB.GetFavorites(c.Param("id"))
	if err != nil {
		Logger.Error("Unable to fetch favorites", "user", c.Param("id"), "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to fetch favorites")
	}
	if favorites == nil {
		favorites = []database.Favorite{}
	}
	return c.JSON(http.StatusOK, favorites)
}

// AddFavorite marks a product as favorite
func (serverHandler *ServerHandler) AddFavorite(c echo.Context) error {
	productID := c.Param("product")
	if _, err := serverHandler.DB.GetProduct(productID); err != nil {
		return serverHandler.productLookupError(c, productID, err)
	}
	if err := serverHandler.DB.AddFavorite(c.Param("id"), productID); err != nil {
		Logger.Error("Unable to add favorite", "user", c.Param("id"), "product", productID, "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to add favorite")
	}
	return serverHandler.GetFavorites(c)
}

// RemoveFavorite unmarks a product
func (serverHandler *ServerHandler) RemoveFavorite(c echo.Context) error {
	if err := serverHandler.DB.RemoveFavorite(c.Param("id"), c.Param("product")); err != nil {
		Logger.Error("Unable to remove favorite", "user", c.Param("id"), "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to remove favorite")
	}
	return serverHandler.GetFavorites(c)
}

// ListProducts returns the whole catalog
func (serverHandler *ServerHandler) ListProducts(c echo.Context) error {
	products, err := serverHandler.DB.ListProducts()
	if err != nil {
		Logger.Error("Unable to list products", "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to list products")
	}
	if products == nil {
		products = []database.Product{}
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct returns a single product
func (serverHandler *ServerHandler) GetProduct(c echo.Context) error {
	product, err := serverHandler.DB.GetProduct(c.Param("id"))
	if err != nil {
		return serverHandler.productLookupError(c, c.Param("id"), err)
	}
	return c.JSON(http.StatusOK, product)
}

// SearchProducts runs a full text search over names, descriptions and datasheets
func (serverHandler *ServerHandler) SearchProducts(c echo.Context) error {
	term := c.QueryParam("term")
	if term == "" {
		return jsonError(c, http.StatusBadRequest, "empty search term")
	}
	limit := 20
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	ids, err := database.SearchProducts(term, limit, serverHandler.SearchDB)
	if err != nil {
		Logger.Error("Search failed", "term", term, "error", err)
		return jsonError(c, http.StatusInternalServerError, "search failed")
	}
	products := make([]database.Product, 0, len(ids))
	for _, id := range ids {
		product, err := serverHandler.DB.GetProduct(id)
		if errors.Is(err, database.ErrNotFound) {
			Logger.Warn("Search index references a missing product", "id", id)
			continue
		}
		if err != nil {
			Logger.Error("Unable to fetch product from search", "id", id, "error", err)
			return jsonError(c, http.StatusInternalServerError, "search failed")
		}
		products = append(products, *product)
	}
	return c.JSON(http.StatusOK, products)
}

func (serverHandler *ServerHandler) productLookupError(c echo.Context, productID string, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "product not found")
	}
	Logger.Error("Unable to fetch product", "id", productID, "error", err)
	return jsonError(c, http.StatusInternalServerError, "unable to fetch product")
}
