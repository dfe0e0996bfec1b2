package transcode

import (
	"os"
	"testing"

	"github.com/rs/zerolog"

	"gallery-server/internal/config"
)

func TestParseProbeDimensions(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantW   int
		wantH   int
		wantErr bool
	}{
		{"plain", "1920x1080", 1920, 1080, false},
		{"trailing newline", "1280x720\n", 1280, 720, false},
		{"trailing separator", "1920x1080x\n", 1920, 1080, false},
		{"multiple streams", "3840x2160\n1920x1080\n", 3840, 2160, false},
		{"empty", "", 0, 0, true},
		{"garbage", "N/AxN/A", 0, 0, true},
		{"missing height", "1920", 0, 0, true},
		{"zero dimensions", "0x0", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := parseProbeDimensions(tt.out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseProbeDimensions(%q) error = %v, wantErr %v", tt.out, err, tt.wantErr)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("parseProbeDimensions(%q) = %dx%d, want %dx%d", tt.out, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestWriteTempFile(t *testing.T) {
	t.Setenv("DB_POSTGRESQL_DSN", "postgres://localhost/gallery_test")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	f := NewFFmpeg(cfg, zerolog.Nop())

	path, cleanup, err := f.WriteTempFile([]byte("video-bytes"), "mp4")
	if err != nil {
		t.Fatalf("WriteTempFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("temp content = %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("temp file still present after cleanup")
	}
	cleanup() // second call is a no-op
}
