// AngelaMos | 2026
// client.go

package xbox

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/provider"
)

const (
	CollectionAllConsole = "f6f1f99f-9b49-4ccd-b3bf-4d9767a77f5e"
	CollectionPC         = "fdd9e2a7-0fee-49f6-ad69-4354098401ff"
	CollectionEAPlay     = "b8900d09-a491-44cc-916e-32b5acae621b"
)

// Client reads the Microsoft Store catalog: collection listings (sigls)
// give product ids, displaycatalog gives product details.
type Client struct {
	fetcher    *provider.Fetcher
	catalogURL string
	productURL string
	market     string
	language   string
	batchSize  int
}

func NewClient(fetcher *provider.Fetcher, cfg config.XboxConfig) *Client {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 20
	}
	market := cfg.Market
	if market == "" {
		market = "US"
	}
	language := cfg.Language
	if language == "" {
		language = "en-us"
	}

	return &Client{
		fetcher:    fetcher,
		catalogURL: cfg.CatalogURL,
		productURL: cfg.ProductURL,
		market:     market,
		language:   language,
		batchSize:  batch,
	}
}

type collectionItem struct {
	ID     string `json:"id"`
	SiglID string `json:"siglId"`
}

// CollectionIDs lists product ids of a collection. The first element of the
// response describes the collection itself and carries no id.
func (c *Client) CollectionIDs(ctx context.Context, collectionID string) ([]string, error) {
	q := url.Values{}
	q.Set("id", collectionID)
	q.Set("language", c.language)
	q.Set("market", c.market)

	var items []collectionItem
	if err := c.fetcher.GetJSON(ctx, "collection", c.catalogURL+"?"+q.Encode(), nil, &items); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		ids = append(ids, item.ID)
	}

	return ids, nil
}

type productsResponse struct {
	Products []Product `json:"Products"`
}

type Product struct {
	ProductID           string              `json:"ProductId"`
	LocalizedProperties []LocalizedProperty `json:"LocalizedProperties"`
	MarketProperties    []MarketProperty    `json:"MarketProperties"`
	Properties          *ProductProperties  `json:"Properties"`
}

type LocalizedProperty struct {
	ProductTitle     string  `json:"ProductTitle"`
	ShortDescription string  `json:"ShortDescription"`
	Images           []Image `json:"Images"`
}

type Image struct {
	ImagePurpose string `json:"ImagePurpose"`
	URI          string `json:"Uri"`
}

type MarketProperty struct {
	OriginalReleaseDate string `json:"OriginalReleaseDate"`
}

type ProductProperties struct {
	Categories []string `json:"Categories"`
}

// Products fetches details for ids, at most BatchSize per request.
func (c *Client) Products(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > c.batchSize {
		return nil, fmt.Errorf("products: batch of %d exceeds %d", len(ids), c.batchSize)
	}

	q := url.Values{}
	q.Set("bigIds", strings.Join(ids, ","))
	q.Set("market", c.market)
	q.Set("languages", c.language)

	var resp productsResponse
	if err := c.fetcher.GetJSON(ctx, "products", c.productURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	return resp.Products, nil
}

func (c *Client) BatchSize() int {
	return c.batchSize
}
