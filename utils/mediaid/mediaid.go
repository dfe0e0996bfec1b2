package mediaid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// New returns a fresh lowercase ULID used as a storage key base. Keys are
// never derived from user-supplied filenames.
func New() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return strings.ToLower(id.String())
}

// IsValid reports whether the string is a key this package could have produced.
func IsValid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// Parse returns the ULID behind a storage key base.
func Parse(value string) (ulid.ULID, error) {
	return ulid.Parse(strings.TrimSpace(value))
}
