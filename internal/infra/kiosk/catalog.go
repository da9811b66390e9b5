package kiosk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kiosk-voice/internal/domain"
	"kiosk-voice/internal/infra"
)

const maxCatalogSize = 4 << 20

// Menu is what the kiosk sells: the categories shown as tabs and the products
// in display order.
type Menu struct {
	Categories []string       `yaml:"categories" json:"categories"`
	Products   domain.Catalog `yaml:"products" json:"products"`
}

// LoadMenu reads a menu from a YAML (or JSON) file, or from an http(s) URL.
// Remote fetches are retried with exponential backoff.
func LoadMenu(ctx context.Context, source string, retry infra.RetryConfig, logger *slog.Logger) (*Menu, error) {
	var (
		data []byte
		err  error
	)

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		err = infra.WithRetry(ctx, retry, func() error {
			var fetchErr error
			data, fetchErr = fetch(ctx, source)
			if fetchErr != nil {
				logger.Warn("fetching catalog", "url", source, "error", fetchErr)
			}
			return fetchErr
		})
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog from %s: %w", source, err)
	}

	menu, err := ParseMenu(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog from %s: %w", source, err)
	}

	logger.Info("catalog loaded", "source", source, "products", len(menu.Products), "categories", len(menu.Categories))
	return menu, nil
}

// ParseMenu decodes a menu document. Categories default to the product
// categories in order of first appearance.
func ParseMenu(data []byte) (*Menu, error) {
	var menu Menu
	if err := yaml.Unmarshal(data, &menu); err != nil {
		return nil, err
	}
	if len(menu.Products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}

	seen := make(map[int]bool, len(menu.Products))
	for _, p := range menu.Products {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("product %d has no name", p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		seen[p.ID] = true
	}

	if len(menu.Categories) == 0 {
		menu.Categories = categoriesOf(menu.Products)
	}
	return &menu, nil
}

func categoriesOf(catalog domain.Catalog) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range catalog {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

var catalogClient = &http.Client{Timeout: 10 * time.Second}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, infra.Permanent(fmt.Errorf("creating request: %w", err))
	}

	resp, err := catalogClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("catalog server returned %s", resp.Status)
		if !infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, infra.Permanent(err)
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogSize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return data, nil
}
