package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const (
	minFilterSize     = 1024
	falsePositiveRate = 0.001
)

// Catalog is an in-memory coupon store.
// A bloom filter answers most lookups for unknown codes without touching the map.
type Catalog struct {
	mu      sync.RWMutex
	coupons map[string]models.Coupon
	filter  *bloom.BloomFilter
	sources int
	client  *http.Client
}

// CatalogStats describes the loaded catalog
type CatalogStats struct {
	Sources       int    `json:"sources"`
	Coupons       int    `json:"coupons"`
	FilterEntries uint32 `json:"filterEntries"`
}

// NewCatalog creates a catalog holding the given coupons
func NewCatalog(coupons ...models.Coupon) (*Catalog, error) {
	c := &Catalog{
		client: &http.Client{
			Timeout:   5 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	if err := c.replace(coupons, 0); err != nil {
		return nil, err
	}
	return c, nil
}

// Lookup returns the coupon for code
func (c *Catalog) Lookup(_ context.Context, code string) (models.Coupon, error) {
	key := models.NormalizeCouponCode(code)
	if key == "" {
		return models.Coupon{}, apperr.ErrCouponNotFound
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.filter.TestString(key) {
		return models.Coupon{}, apperr.ErrCouponNotFound
	}
	coupon, ok := c.coupons[key]
	if !ok {
		return models.Coupon{}, apperr.ErrCouponNotFound
	}
	return coupon, nil
}

// Create adds a new coupon
func (c *Catalog) Create(coupon models.Coupon) (models.Coupon, error) {
	coupon.Code = models.NormalizeCouponCode(coupon.Code)
	if err := coupon.Validate(); err != nil {
		return models.Coupon{}, apperr.NewFailure(apperr.ErrInvalidCoupon, err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.coupons[coupon.Code]; ok {
		return models.Coupon{}, fmt.Errorf("coupon %s: %w", coupon.Code, apperr.ErrCouponExists)
	}
	c.coupons[coupon.Code] = coupon
	c.filter.AddString(coupon.Code)
	return coupon, nil
}

// Update replaces the title, description and discount of an existing coupon
func (c *Catalog) Update(code string, coupon models.Coupon) (models.Coupon, error) {
	coupon.Code = models.NormalizeCouponCode(code)
	if err := coupon.Validate(); err != nil {
		return models.Coupon{}, apperr.NewFailure(apperr.ErrInvalidCoupon, err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.coupons[coupon.Code]; !ok {
		return models.Coupon{}, fmt.Errorf("coupon %s: %w", coupon.Code, apperr.ErrCouponNotFound)
	}
	c.coupons[coupon.Code] = coupon
	return coupon, nil
}

// Delete removes a coupon. The code stays in the bloom filter until the next load.
func (c *Catalog) Delete(code string) error {
	key := models.NormalizeCouponCode(code)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.coupons[key]; !ok {
		return fmt.Errorf("coupon %s: %w", key, apperr.ErrCouponNotFound)
	}
	delete(c.coupons, key)
	return nil
}

// List returns all coupons ordered by code
func (c *Catalog) List() []models.Coupon {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Coupon, 0, len(c.coupons))
	for _, coupon := range c.coupons {
		out = append(out, coupon)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Stats returns statistics about loaded coupons
func (c *Catalog) Stats() CatalogStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CatalogStats{
		Sources:       c.sources,
		Coupons:       len(c.coupons),
		FilterEntries: c.filter.ApproximatedSize(),
	}
}

// LoadFromFiles replaces the catalog with coupons read from local files.
// Files are read concurrently; when a code appears in several files the last file wins.
func (c *Catalog) LoadFromFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no coupon files provided")
	}
	return c.load(ctx, paths, func(_ context.Context, path string) (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// LoadFromURLs replaces the catalog with coupons downloaded from urls.
// Plain and gzipped bodies are both accepted.
func (c *Catalog) LoadFromURLs(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return fmt.Errorf("no coupon URLs provided")
	}
	return c.load(ctx, urls, c.download)
}

type openFunc func(ctx context.Context, source string) (io.ReadCloser, error)

func (c *Catalog) load(ctx context.Context, sources []string, open openFunc) error {
	results := make([][]models.Coupon, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			rc, err := open(ctx, src)
			if err != nil {
				return fmt.Errorf("failed to open coupon source %d: %w", i+1, err)
			}
			defer rc.Close()

			coupons, err := parseCoupons(rc)
			if err != nil {
				return fmt.Errorf("failed to load coupon source %d: %w", i+1, err)
			}
			results[i] = coupons
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []models.Coupon
	for _, r := range results {
		all = append(all, r...)
	}
	return c.replace(all, len(sources))
}

func (c *Catalog) download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Catalog) replace(coupons []models.Coupon, sources int) error {
	size := uint(len(coupons))
	if size < minFilterSize {
		size = minFilterSize
	}
	filter := bloom.NewWithEstimates(size, falsePositiveRate)
	index := make(map[string]models.Coupon, len(coupons))

	for _, coupon := range coupons {
		coupon.Code = models.NormalizeCouponCode(coupon.Code)
		if err := coupon.Validate(); err != nil {
			return apperr.NewFailure(apperr.ErrInvalidCoupon, err.Error())
		}
		index[coupon.Code] = coupon
		filter.AddString(coupon.Code)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.coupons = index
	c.filter = filter
	c.sources = sources
	return nil
}

// parseCoupons reads "CODE,percent[,title]" lines, gunzipping the input if needed.
// Blank lines and lines starting with # are skipped.
func parseCoupons(r io.Reader) ([]models.Coupon, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		return scanCoupons(gz)
	}
	return scanCoupons(br)
}

func scanCoupons(r io.Reader) ([]models.Coupon, error) {
	var coupons []models.Coupon
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, ",", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected CODE,percent", lineNo)
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid percent %q", lineNo, fields[1])
		}

		coupon := models.Coupon{
			Code:            models.NormalizeCouponCode(fields[0]),
			DiscountPercent: pct,
		}
		if len(fields) == 3 {
			coupon.Title = strings.TrimSpace(fields[2])
		}
		if err := coupon.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		coupons = append(coupons, coupon)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return coupons, nil
}
