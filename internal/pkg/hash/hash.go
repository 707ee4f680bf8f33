package hash

// Hash abstracts one-way hashing so callers can swap algorithms per use:
// keyed HMAC for opaque tokens, bcrypt for passwords.
type Hash interface {
	// Hash returns the hashed form of str.
	Hash(str string) ([]byte, error)
	// Verify reports whether str matches the previously hashed value.
	Verify(hashed, str string) bool
}
