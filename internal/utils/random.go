package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// NumericCode returns n random decimal digits.
func NumericCode(n int) (string, error) {
	var b strings.Builder
	for range n {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify builds a URL slug from a title with a short unique suffix.
func Slugify(title string) string {
	base := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if len(base) > 60 {
		base = strings.TrimRight(base[:60], "-")
	}
	suffix := uuid.NewString()[:8]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func StateToken() string {
	return uuid.NewString()
}
