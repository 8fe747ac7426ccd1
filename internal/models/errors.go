package models

import (
	"errors"
	"strings"
)

// ErrMissingField is wrapped by validation errors naming the field.
var ErrMissingField = errors.New("missing required field")

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
