package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/drummonds/goStorefront/database"
	"github.com/gen2brain/go-fitz"
	"github.com/labstack/echo/v4"
	"github.com/ledongthuc/pdf"
)

// maxUploadBytes caps product images and datasheets
const maxUploadBytes = 20 << 20

var errEmptyPDFText = errors.New("PDF text result is empty")

// CreateProduct adds a product from a multipart form (name, description, price in cents, optional image)
func (serverHandler *ServerHandler) CreateProduct(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return jsonError(c, http.StatusBadRequest, "name is required")
	}
	var price int64
	if raw := c.FormValue("price"); raw != "" {
		p, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || p < 0 {
			return jsonError(c, http.StatusBadRequest, "price must be a non-negative number of cents")
		}
		price = p
	}
	product := &database.Product{
		ID:          database.NewID(),
		Name:        name,
		Description: strings.TrimSpace(c.FormValue("description")),
		PriceCents:  price,
	}

	fileHeader, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return jsonError(c, http.StatusBadRequest, "invalid image upload")
	default:
		if err := serverHandler.storeProductImage(product, fileHeader); err != nil {
			Logger.Error("Unable to store product image", "product", product.ID, "error", err)
			return jsonError(c, http.StatusBadRequest, "unable to process image")
		}
	}

	if err := serverHandler.DB.SaveProduct(product); err != nil {
		Logger.Error("Unable to save product", "name", name, "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to save product")
	}
	if err := database.IndexProduct(product, serverHandler.SearchDB); err != nil {
		Logger.Warn("Unable to index product, search will miss it until the next rebuild", "product", product.ID, "error", err)
	}
	Logger.Info("Added product to the catalog", "product", product.ID, "name", name)
	return c.JSON(http.StatusCreated, product)
}

// UploadDatasheet attaches a PDF datasheet to a product: its text goes into the search index
// and its first page is rendered as a preview image
func (serverHandler *ServerHandler) UploadDatasheet(c echo.Context) error {
	product, err := serverHandler.DB.GetProduct(c.Param("id"))
	if err != nil {
		return serverHandler.productLookupError(c, c.Param("id"), err)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "missing datasheet file")
	}
	if strings.ToLower(filepath.Ext(fileHeader.Filename)) != ".pdf" {
		return jsonError(c, http.StatusBadRequest, "datasheet must be a PDF")
	}
	pdfPath := filepath.Join(serverHandler.ServerConfig.ImagePath, product.ID+".pdf")
	if err := saveUpload(fileHeader, pdfPath); err != nil {
		Logger.Error("Unable to write datasheet", "path", pdfPath, "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to store datasheet")
	}

	fullText, err := pdfProcessing(pdfPath)
	if err != nil {
		Logger.Warn("No text extracted from datasheet", "product", product.ID, "error", err)
	} else {
		product.DatasheetText = fullText
	}

	previewName := product.ID + "_preview.png"
	if err := serverHandler.renderPreview(pdfPath, filepath.Join(serverHandler.ServerConfig.ImagePath, previewName)); err != nil {
		Logger.Warn("Unable to render datasheet preview", "product", product.ID, "error", err)
	} else {
		product.PreviewURL = "/images/" + previewName
	}

	if err := serverHandler.DB.SaveProduct(product); err != nil {
		Logger.Error("Unable to save product", "product", product.ID, "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to save product")
	}
	if err := database.IndexProduct(product, serverHandler.SearchDB); err != nil {
		Logger.Warn("Unable to index datasheet", "product", product.ID, "error", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (serverHandler *ServerHandler) rebuildIndex() error {
	count, err := database.RebuildSearchIndex(serverHandler.DB, serverHandler.SearchDB)
	if err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}
	Logger.Info("Search index rebuilt", "products", count)
	return nil
}

func (serverHandler *ServerHandler) storeProductImage(product *database.Product, fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > maxUploadBytes {
		return fmt.Errorf("image too large: %d bytes", fileHeader.Size)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()
	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("unable to decode image: %w", err)
	}

	imageDir := serverHandler.ServerConfig.ImagePath
	if err := os.MkdirAll(imageDir, os.ModePerm); err != nil {
		return err
	}
	imageName := product.ID + ".png"
	if err := imaging.Save(img, filepath.Join(imageDir, imageName)); err != nil {
		return fmt.Errorf("unable to save image: %w", err)
	}

	width := serverHandler.ServerConfig.ThumbnailWidth
	if width <= 0 {
		width = 320
	}
	thumbName := product.ID + "_thumb.png"
	thumb := imaging.Resize(img, width, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(imageDir, thumbName)); err != nil {
		return fmt.Errorf("unable to save thumbnail: %w", err)
	}
	product.ImageURL = "/images/" + imageName
	product.ThumbnailURL = "/images/" + thumbName
	return nil
}

func saveUpload(fileHeader *multipart.FileHeader, path string) error {
	if fileHeader.Size > maxUploadBytes {
		return fmt.Errorf("upload too large: %d bytes", fileHeader.Size)
	}
	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func pdfProcessing(file string) (string, error) {
	fileName := filepath.Base(file)
	Logger.Debug("Extracting datasheet text", "fileName", fileName)
	pdfFile, result, err := pdf.Open(file)
	if err != nil {
		return "", fmt.Errorf("unable to open PDF %s: %w", fileName, err)
	}
	defer pdfFile.Close()
	var buf bytes.Buffer
	text, err := result.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("unable to convert PDF %s to text: %w", fileName, err)
	}
	if _, err := buf.ReadFrom(text); err != nil {
		return "", err
	}
	fullText := strings.TrimSpace(buf.String())
	if fullText == "" {
		return "", errEmptyPDFText
	}
	return fullText, nil
}

// renderPreview renders the first PDF page, scaled to the thumbnail width
func (serverHandler *ServerHandler) renderPreview(pdfPath, outPath string) error {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()
	if doc.NumPage() == 0 {
		return errors.New("PDF has no pages")
	}
	page, err := doc.Image(0)
	if err != nil {
		return fmt.Errorf("unable to render first page: %w", err)
	}
	width := serverHandler.ServerConfig.ThumbnailWidth
	if width <= 0 {
		width = 320
	}
	preview := imaging.Sharpen(imaging.Resize(page, width, 0, imaging.Lanczos), 0.5)
	return imaging.Save(preview, outPath)
}
