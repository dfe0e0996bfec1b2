package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"gallery-server/internal/config"
)

func s3Config(t *testing.T, endpoint, tenant string) *config.Config {
	t.Helper()
	t.Setenv("DB_POSTGRESQL_DSN", "postgres://localhost/gallery_test")
	t.Setenv("GALLERY_S3_ENDPOINT", endpoint)
	t.Setenv("GALLERY_S3_TENANT_ID", tenant)
	t.Setenv("GALLERY_S3_BUCKET", "gallery")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		tenant   string
		key      string
		want     string
	}{
		{
			name:     "tenant scoped bucket",
			endpoint: "https://objects.example.com",
			tenant:   "acme",
			key:      "01hq.jpg",
			want:     "https://objects.example.com/acme:gallery/01hq.jpg",
		},
		{
			name:     "no tenant",
			endpoint: "https://objects.example.com",
			tenant:   "",
			key:      "01hq.jpg",
			want:     "https://objects.example.com/gallery/01hq.jpg",
		},
		{
			name:     "trailing slash endpoint",
			endpoint: "https://objects.example.com/",
			tenant:   "acme",
			key:      "thumbnails/01hq.jpg",
			want:     "https://objects.example.com/acme:gallery/thumbnails/01hq.jpg",
		},
		{
			name:     "no endpoint falls back to regional host",
			endpoint: "",
			tenant:   "",
			key:      "01hq.jpg",
			want:     "https://s3.us-east-1.amazonaws.com/gallery/01hq.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := s3Config(t, tt.endpoint, tt.tenant)
			store, err := NewS3Store(context.Background(), cfg, zerolog.Nop())
			if err != nil {
				t.Fatalf("NewS3Store() error = %v", err)
			}
			if got := store.PublicURL(tt.key); got != tt.want {
				t.Errorf("PublicURL(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

// TestExistsClassifiesHeadResponses drives the real client against a stub
// path-style endpoint: 404 means the object is absent, anything else broken
// must surface as an error so callers never mistake an outage for absence.
func TestExistsClassifiesHeadResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch r.URL.Path {
		case "/gallery/present.jpg":
			w.Header().Set("Content-Length", "4")
			w.WriteHeader(http.StatusOK)
		case "/gallery/missing.jpg":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	t.Setenv("GALLERY_S3_ACCESS_KEY_ID", "test-access")
	t.Setenv("GALLERY_S3_SECRET_ACCESS_KEY", "test-secret")
	cfg := s3Config(t, srv.URL, "")
	store, err := NewS3Store(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}
	if !store.IsConfigured() {
		t.Fatal("store should be configured with bucket and credentials")
	}

	ok, err := store.Exists(context.Background(), "present.jpg")
	if err != nil || !ok {
		t.Errorf("Exists(present) = (%v, %v), want (true, nil)", ok, err)
	}

	// A missing object is not an error, and asking twice gives the same
	// answer.
	for i := 0; i < 2; i++ {
		ok, err = store.Exists(context.Background(), "missing.jpg")
		if err != nil || ok {
			t.Errorf("Exists(missing) call %d = (%v, %v), want (false, nil)", i+1, ok, err)
		}
	}

	if _, err = store.Exists(context.Background(), "denied.jpg"); err == nil {
		t.Error("Exists() on a 403 response did not return an error")
	}
}

func TestUnconfiguredStoreRefusesOperations(t *testing.T) {
	// Bucket set but no credentials: remote mode stays off.
	cfg := s3Config(t, "https://objects.example.com", "")
	store, err := NewS3Store(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}

	if store.IsConfigured() {
		t.Fatal("IsConfigured() = true without credentials")
	}
	if _, err := store.Put(context.Background(), "k", nil, 0, "image/jpeg"); err == nil {
		t.Error("Put() on unconfigured store did not fail")
	}
	if err := store.Delete(context.Background(), "k"); err == nil {
		t.Error("Delete() on unconfigured store did not fail")
	}
	if _, err := store.Exists(context.Background(), "k"); err == nil {
		t.Error("Exists() on unconfigured store did not fail")
	}
}
