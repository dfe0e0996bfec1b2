package mediaid_test

import (
	"strings"
	"testing"

	"gallery-server/utils/mediaid"
)

func TestNew(t *testing.T) {
	id := mediaid.New()
	if len(id) != 26 {
		t.Fatalf("New() length = %d, want 26", len(id))
	}
	if id != strings.ToLower(id) {
		t.Errorf("New() = %q, want lowercase", id)
	}
	if !mediaid.IsValid(id) {
		t.Errorf("IsValid(%q) = false, want true", id)
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := mediaid.New()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d iterations", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"generated id", mediaid.New(), true},
		{"empty", "", false},
		{"path traversal attempt", "../../etc/passwd", false},
		{"arbitrary filename", "vacation photo.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mediaid.IsValid(tt.value); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
