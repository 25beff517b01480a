package coupon

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// setupTestFiles creates coupon files in a temp dir and returns their paths
func setupTestFiles(t *testing.T) (string, string) {
	t.Helper()

	tmpDir := t.TempDir()
	file1 := filepath.Join(tmpDir, "coupons1.txt")
	file2 := filepath.Join(tmpDir, "coupons2.txt.gz")

	if err := os.WriteFile(file1, []byte("# seasonal\nSAVE10,10,Ten off\nhalf,50\n\n"), 0644); err != nil {
		t.Fatalf("failed to create test file 1: %v", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("FREESHIP,5\nSAVE10,15,Fifteen off\n"))
	gz.Close()
	if err := os.WriteFile(file2, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to create test file 2: %v", err)
	}

	return file1, file2
}

func TestCatalog_LoadFromFiles(t *testing.T) {
	t.Run("successful load from multiple files", func(t *testing.T) {
		file1, file2 := setupTestFiles(t)

		catalog, _ := NewCatalog()
		if err := catalog.LoadFromFiles(context.Background(), []string{file1, file2}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		stats := catalog.Stats()
		if stats.Sources != 2 {
			t.Errorf("expected 2 sources, got %d", stats.Sources)
		}
		if stats.Coupons != 3 {
			t.Errorf("expected 3 coupons, got %d", stats.Coupons)
		}

		c, err := catalog.Lookup(context.Background(), "save10")
		if err != nil {
			t.Fatalf("expected SAVE10, got: %v", err)
		}
		if !c.DiscountPercent.Equal(decimal.NewFromInt(15)) {
			t.Errorf("expected later file to win with 15, got %s", c.DiscountPercent)
		}
		if c.Title != "Fifteen off" {
			t.Errorf("unexpected title %q", c.Title)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		catalog, _ := NewCatalog()
		err := catalog.LoadFromFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("no files", func(t *testing.T) {
		catalog, _ := NewCatalog()
		if err := catalog.LoadFromFiles(context.Background(), nil); err == nil {
			t.Fatal("expected error for empty file list")
		}
	})

	t.Run("malformed line keeps previous catalog", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.txt")
		os.WriteFile(bad, []byte("GOOD,10\nBROKEN\n"), 0644)

		catalog, _ := NewCatalog(models.Coupon{Code: "KEEP", DiscountPercent: decimal.NewFromInt(5)})
		if err := catalog.LoadFromFiles(context.Background(), []string{bad}); err == nil {
			t.Fatal("expected parse error")
		}
		if _, err := catalog.Lookup(context.Background(), "KEEP"); err != nil {
			t.Errorf("expected KEEP to survive failed load, got %v", err)
		}
	})
}

func TestCatalog_LoadFromURLs(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("REMOTE20,20\n"))
	gz.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.gz":
			w.Write(buf.Bytes())
		case "/b.txt":
			w.Write([]byte("PLAIN30,30\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	catalog, _ := NewCatalog()
	if err := catalog.LoadFromURLs(context.Background(), []string{srv.URL + "/a.gz", srv.URL + "/b.txt"}); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	for _, code := range []string{"remote20", "PLAIN30"} {
		if _, err := catalog.Lookup(context.Background(), code); err != nil {
			t.Errorf("Lookup(%s) = %v", code, err)
		}
	}

	if err := catalog.LoadFromURLs(context.Background(), []string{srv.URL + "/missing"}); err == nil {
		t.Error("expected error for 404 source")
	}
}

func TestCatalog_Lookup(t *testing.T) {
	catalog, err := NewCatalog(models.Coupon{Code: " Save10 ", DiscountPercent: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"exact", "SAVE10", nil},
		{"lower case", "save10", nil},
		{"padded", "  save10 ", nil},
		{"unknown", "NOPE", apperr.ErrCouponNotFound},
		{"blank", "   ", apperr.ErrCouponNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := catalog.Lookup(context.Background(), tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lookup() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && c.Code != "SAVE10" {
				t.Errorf("expected normalized code SAVE10, got %q", c.Code)
			}
		})
	}
}

func TestCatalog_Admin(t *testing.T) {
	catalog, _ := NewCatalog()

	created, err := catalog.Create(models.Coupon{Code: "new5", Title: "Five", DiscountPercent: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Code != "NEW5" {
		t.Errorf("expected NEW5, got %s", created.Code)
	}

	if _, err := catalog.Create(models.Coupon{Code: "NEW5", DiscountPercent: decimal.NewFromInt(1)}); !errors.Is(err, apperr.ErrCouponExists) {
		t.Errorf("expected ErrCouponExists, got %v", err)
	}
	if _, err := catalog.Create(models.Coupon{Code: "BIG", DiscountPercent: decimal.NewFromInt(101)}); !errors.Is(err, apperr.ErrInvalidCoupon) {
		t.Errorf("expected ErrInvalidCoupon, got %v", err)
	}

	updated, err := catalog.Update("new5", models.Coupon{Title: "Seven", DiscountPercent: decimal.NewFromInt(7)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Code != "NEW5" || !updated.DiscountPercent.Equal(decimal.NewFromInt(7)) {
		t.Errorf("unexpected update result %+v", updated)
	}
	if _, err := catalog.Update("GHOST", models.Coupon{DiscountPercent: decimal.NewFromInt(1)}); !errors.Is(err, apperr.ErrCouponNotFound) {
		t.Errorf("expected ErrCouponNotFound, got %v", err)
	}

	if got := catalog.List(); len(got) != 1 || got[0].Title != "Seven" {
		t.Errorf("unexpected list %+v", got)
	}

	if err := catalog.Delete("NEW5"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := catalog.Lookup(context.Background(), "NEW5"); !errors.Is(err, apperr.ErrCouponNotFound) {
		t.Errorf("expected deleted coupon to be gone, got %v", err)
	}
	if err := catalog.Delete("NEW5"); !errors.Is(err, apperr.ErrCouponNotFound) {
		t.Errorf("expected ErrCouponNotFound on second delete, got %v", err)
	}
}

func TestCatalog_ConcurrentAccess(t *testing.T) {
	catalog, _ := NewCatalog(models.Coupon{Code: "SAVE10", DiscountPercent: decimal.NewFromInt(10)})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			catalog.Lookup(context.Background(), "SAVE10")
		}()
		go func() {
			defer wg.Done()
			catalog.List()
		}()
	}
	wg.Wait()
}
