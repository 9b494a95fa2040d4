package database

import (
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve"
)

// productDocument is what gets indexed for a product
type productDocument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Datasheet   string `json:"datasheet"`
}

// SetupSearchDB sets up new bleve or opens existing
func SetupSearchDB(indexPath string) (bleve.Index, error) {
	indexPath = filepath.Clean(indexPath)
	Logger.Info("Checking if bleve index exists", "path", indexPath)
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		Logger.Info("Creating new bleve index")
		if err := os.MkdirAll(filepath.Dir(indexPath), os.ModePerm); err != nil {
			return nil, err
		}
		index, err := bleve.New(indexPath, bleve.NewIndexMapping())
		if err != nil {
			Logger.Error("Failed to create bleve index", "error", err)
			return nil, err
		}
		return index, nil
	}
	Logger.Info("Opening existing bleve index")
	index, err := bleve.Open(indexPath)
	if err != nil {
		Logger.Error("Failed to open bleve index", "error", err)
		return nil, err
	}
	return index, nil
}

// IndexProduct adds or replaces a product in the search index
func IndexProduct(product *Product, index bleve.Index) error {
	return index.Index(product.ID, productDocument{
		Name:        product.Name,
		Description: product.Description,
		Datasheet:   product.DatasheetText,
	})
}

// DeleteProductFromSearch removes a product from the search index
func DeleteProductFromSearch(productID string, index bleve.Index) error {
	return index.Delete(productID)
}

// SearchProducts runs a query string search and returns matching product IDs, best first
func SearchProducts(term string, limit int, index bleve.Index) ([]string, error) {
	query := bleve.NewQueryStringQuery(term)
	request := bleve.NewSearchRequestOptions(query, limit, 0, false)
	result, err := index.Search(request)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// RebuildSearchIndex indexes every product in the database and drops documents
// whose product is gone, so the document count matches the catalog afterwards
func RebuildSearchIndex(db DBInterface, index bleve.Index) (int, error) {
	products, err := db.ListProducts()
	if err != nil {
		return 0, err
	}
	stale, err := indexedIDs(index)
	if err != nil {
		return 0, err
	}
	batch := index.NewBatch()
	for i := range products {
		p := products[i]
		delete(stale, p.ID)
		if err := batch.Index(p.ID, productDocument{Name: p.Name, Description: p.Description, Datasheet: p.DatasheetText}); err != nil {
			return 0, err
		}
	}
	for id := range stale {
		batch.Delete(id)
	}
	if err := index.Batch(batch); err != nil {
		return 0, err
	}
	if len(stale) > 0 {
		Logger.Info("Removed stale search documents", "count", len(stale))
	}
	return len(products), nil
}

// indexedIDs lists every document ID currently in the index
func indexedIDs(index bleve.Index) (map[string]struct{}, error) {
	count, err := index.DocCount()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, count)
	if count == 0 {
		return ids, nil
	}
	request := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	result, err := index.Search(request)
	if err != nil {
		return nil, err
	}
	for _, hit := range result.Hits {
		ids[hit.ID] = struct{}{}
	}
	return ids, nil
}
