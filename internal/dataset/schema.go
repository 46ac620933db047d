package dataset

import (
	"fmt"
	"strings"

	"github.com/vvka-141/msgload/pkg/msgload"
)

// expandError is a token-level failure. The loader turns it into a
// msgload.RowError once the row position is known.
type expandError struct {
	reason   string
	sentinel error
}

func (e *expandError) Error() string { return e.reason + ": " + e.sentinel.Error() }
func (e *expandError) Unwrap() error { return e.sentinel }

func malformed(format string, args ...any) error {
	return &expandError{reason: fmt.Sprintf(format, args...), sentinel: msgload.ErrMalformedRow}
}

func mismatch(format string, args ...any) error {
	return &expandError{reason: fmt.Sprintf(format, args...), sentinel: msgload.ErrSchemaMismatch}
}

// ParseToken splits a category token into its name and value.
//
// The canonical form is "name-<digit>" ("related-1"). The reversed
// "<digit>-name" form ("1-related") is accepted as well; when a token
// matches both forms the canonical reading wins.
func ParseToken(token string) (string, int, error) {
	tok := strings.TrimSpace(token)
	n := len(tok)

	if n >= 3 && tok[n-2] == '-' && isDigit(tok[n-1]) {
		return tok[:n-2], int(tok[n-1] - '0'), nil
	}
	if n >= 3 && tok[1] == '-' && isDigit(tok[0]) {
		return tok[2:], int(tok[0] - '0'), nil
	}
	if n >= 3 && tok[n-2] == '-' {
		return "", 0, malformed("token %q has non-integer value %q", token, tok[n-1:])
	}
	return "", 0, malformed("token %q is not of the form name-<digit>", token)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func splitTokens(packed string) []string {
	return strings.Split(packed, msgload.CategorySeparator)
}

// ParseSchema derives the category schema from one packed categories value.
func ParseSchema(packed string) (msgload.CategorySchema, error) {
	if strings.TrimSpace(packed) == "" {
		return msgload.CategorySchema{}, malformed("categories value is empty")
	}

	tokens := splitTokens(packed)
	names := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for i, tok := range tokens {
		name, _, err := ParseToken(tok)
		if err != nil {
			return msgload.CategorySchema{}, err
		}
		key := strings.ToLower(name)
		if seen[key] {
			return msgload.CategorySchema{}, mismatch("category %q appears twice (token %d)", name, i+1)
		}
		seen[key] = true
		names = append(names, name)
	}
	return msgload.CategorySchema{Names: names}, nil
}

// ExpandCategories validates a packed categories value against the schema
// and returns one value per category, in schema order.
func ExpandCategories(schema msgload.CategorySchema, packed string) ([]int, error) {
	tokens := splitTokens(packed)
	if len(tokens) != schema.Len() {
		return nil, mismatch("expected %d category tokens, got %d", schema.Len(), len(tokens))
	}

	labels := make([]int, len(tokens))
	for i, tok := range tokens {
		name, value, err := ParseToken(tok)
		if err != nil {
			return nil, err
		}
		if name != schema.Names[i] {
			return nil, mismatch("token %d is %q, expected category %q", i+1, name, schema.Names[i])
		}
		labels[i] = value
	}
	return labels, nil
}
