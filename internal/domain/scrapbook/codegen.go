package scrapbook

import "crypto/rand"

// URL-safe alphabet, 64 symbols. 10 symbols give 64^10 combinations, which
// keeps collision probability negligible at any realistic volume.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// DefaultCodeLength matches the original share links
const DefaultCodeLength = 10

// GenerateCode returns a random URL-safe share code of the given length
func GenerateCode(length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}
	b := make([]byte, length)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}
