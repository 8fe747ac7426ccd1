package summary

import "strings"

// UnknownKey replaces empty grouping keys.
const UnknownKey = "Unknown"

// GroupKey is a grouping map key with the characters that document stores
// reserve in field names escaped.
type GroupKey string

//nolint:gochecknoglobals // Immutable replacer.
var keyEscaper = strings.NewReplacer(".", "_", "$", "_")

// NewGroupKey escapes "." and "$" to "_" and maps blank input to UnknownKey.
func NewGroupKey(raw string) GroupKey {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UnknownKey
	}
	return GroupKey(keyEscaper.Replace(raw))
}

// String implements fmt.Stringer.
func (k GroupKey) String() string { return string(k) }
