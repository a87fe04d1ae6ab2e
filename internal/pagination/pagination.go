// Package pagination implements the offset+limit list protocol of the
// emulated API, including its opaque continuation tokens.
package pagination

import (
	"fmt"
	"regexp"
	"strconv"

	apierr "github.com/callendorph/mturkemu/internal/errors"
)

const (
	DefaultMaxResults = 10
	MaxMaxResults     = 100
)

var tokenPattern = regexp.MustCompile(`^A(\d+)$`)

// Params is a resolved pagination window.
type Params struct {
	Offset int
	Limit  int
}

// Parse resolves MaxResults and an optional NextToken into a window.
// A zero maxResults selects the default; values above the cap clamp.
func Parse(maxResults int, nextToken string) (Params, error) {
	limit := maxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if limit > MaxMaxResults {
		limit = MaxMaxResults
	}

	offset := 0
	if nextToken != "" {
		m := tokenPattern.FindStringSubmatch(nextToken)
		if m == nil {
			return Params{}, apierr.Validation(
				fmt.Sprintf("Invalid next token format: %s", nextToken))
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Params{}, apierr.Validation(
				fmt.Sprintf("Invalid next token format: %s", nextToken))
		}
		offset = n
	}

	return Params{Offset: offset, Limit: limit}, nil
}

// NextToken encodes the offset of the next page. The token is opaque to
// clients but stable for a given offset.
func NextToken(offset int) string {
	return fmt.Sprintf("A%010d", offset)
}
