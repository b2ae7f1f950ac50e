package licensekey

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"github.com/procurahq/license-api/internal/ierr"
)

const (
	Prefix             = "APP"
	SegmentLength      = 4
	SegmentCount       = 3
	DefaultMaxAttempts = 10

	// No I, O, 0 or 1: keys are read aloud and typed by hand.
	alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var keyPattern = regexp.MustCompile(`^APP-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Normalize trims surrounding whitespace and upper-cases a raw key.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// IsValid reports whether a normalized key matches the APP-XXXX-YYYY-ZZZZ format.
func IsValid(key string) bool {
	return keyPattern.MatchString(key)
}

// Generate produces a candidate key of the form APP-XXXX-YYYY-ZZZZ using the
// restricted alphabet. Candidates are not checked for uniqueness.
func Generate() (string, error) {
	buf := make([]byte, SegmentLength*SegmentCount)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	segments := make([]string, 0, SegmentCount+1)
	segments = append(segments, Prefix)
	for s := 0; s < SegmentCount; s++ {
		var sb strings.Builder
		for i := 0; i < SegmentLength; i++ {
			// len(alphabet) is 32, so masking keeps the draw unbiased.
			sb.WriteByte(alphabet[buf[s*SegmentLength+i]&31])
		}
		segments = append(segments, sb.String())
	}
	return strings.Join(segments, "-"), nil
}

// KeyChecker is the slice of the license store the generator needs.
type KeyChecker interface {
	KeyExists(ctx context.Context, key string) (bool, error)
}

// GenerateUnique draws candidate keys until one does not collide with an
// existing record, giving up after maxAttempts draws.
func GenerateUnique(ctx context.Context, store KeyChecker, maxAttempts int) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		key, err := Generate()
		if err != nil {
			return "", err
		}

		exists, err := store.KeyExists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("checking key uniqueness: %w", err)
		}
		if !exists {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ierr.ErrKeyspaceExhausted, maxAttempts)
}
