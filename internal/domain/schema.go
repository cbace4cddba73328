package domain

import "time"

// Schema describes how one record type is validated, keyed and ordered.
// Storage adapters and the record service are generic over it.
type Schema[T any] interface {
	// Resource is the singular resource name used in messages.
	Resource() string
	// KeyField is the name of the identity field.
	KeyField() string
	// NormalizeKey canonicalizes an identifier taken from a request path.
	NormalizeKey(id string) string
	// Decode validates an untyped submission and returns a normalized record.
	Decode(fields map[string]any, now time.Time) (T, error)
	// DecodeUpdate decodes a replacement for the record identified by id.
	DecodeUpdate(id string, fields map[string]any, now time.Time) (T, error)
	Key(record T) string
	// Merge returns incoming with the immutable fields of stored.
	Merge(stored, incoming T) T
	// Less reports whether a sorts before b in listings.
	Less(a, b T) bool
}

// withoutFields copies fields, dropping the named keys.
func withoutFields(fields map[string]any, drop ...string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	for _, k := range drop {
		delete(out, k)
	}
	return out
}
