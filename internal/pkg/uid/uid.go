// Package uid provides identifier generators: snowflake numeric IDs for
// database rows, UUIDs for correlation, and long random object IDs for
// unguessable opaque tokens.
package uid

// NumberID generates numeric identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
