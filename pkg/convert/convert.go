// Package convert decodes configuration text into typed values.
package convert

import (
	"errors"
	"fmt"
)

// ErrNotStrictBool is returned when text is neither "true" nor "false".
var ErrNotStrictBool = errors.New("strictly-converted booleans must be either 'true' or 'false'")

// StrictBool decodes exactly "true" or "false". Case and surrounding
// whitespace are significant.
func StrictBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w, not %q", ErrNotStrictBool, s)
	}
}
