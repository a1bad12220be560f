// Package credentials generates sanitized, engine-legal identifiers and
// secrets for new database instances. Names and users carry a
// deterministic owner/engine prefix plus a short random segment; secrets
// come from an independent secure-random stream and are never derived
// from the name generator.
package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned when sanitization yields an empty
// identifier.
var ErrInvalidIdentifier = errors.New("invalid identifier")

const (
	// maxIdentifierLen is the strictest identifier bound across the
	// supported engines (Postgres allows 63, MySQL 64; the historical
	// bound of 50 is kept).
	maxIdentifierLen = 50

	// segmentLen is the random suffix length. 6 alphanumerics give ~31
	// bits; uniqueness is statistical, no repository re-check is done.
	segmentLen = 6

	// secretBytes sized for 128 bits of entropy, above the 80-bit floor.
	secretBytes = 16
)

// invalidIdentChars matches every character not legal in an identifier.
var invalidIdentChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// segmentAlphabet is the character set for random identifier segments.
const segmentAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Credentials holds the generated triple for one instance.
type Credentials struct {
	Name   string
	DBUser string
	Secret string
}

// Generator produces instance credentials from a cryptographically secure
// thread-safe random source (crypto/rand).
type Generator struct{}

// New creates a credential generator.
func New() *Generator {
	return &Generator{}
}

// Generate produces a (name, dbUser, secret) triple for the owner and
// engine kind. Name and user share a prefix scheme but draw separate
// random segments; the secret draws from its own random stream.
func (g *Generator) Generate(ownerID int64, engine string) (Credentials, error) {
	nameSeg, err := randomSegment(segmentLen)
	if err != nil {
		return Credentials{}, fmt.Errorf("generate name segment: %w", err)
	}
	userSeg, err := randomSegment(segmentLen)
	if err != nil {
		return Credentials{}, fmt.Errorf("generate user segment: %w", err)
	}

	name, err := Sanitize(fmt.Sprintf("db_%d_%s_%s", ownerID, engine, nameSeg))
	if err != nil {
		return Credentials{}, err
	}
	dbUser, err := Sanitize(fmt.Sprintf("usr_%d_%s_%s", ownerID, engine, userSeg))
	if err != nil {
		return Credentials{}, err
	}

	secret, err := generateSecret()
	if err != nil {
		return Credentials{}, fmt.Errorf("generate secret: %w", err)
	}

	return Credentials{
		Name:   name,
		DBUser: dbUser,
		Secret: secret,
	}, nil
}

// Sanitize strips every character outside [a-zA-Z0-9_], truncates to the
// strictest engine bound, and lower-cases the result. An input that
// sanitizes to the empty string yields ErrInvalidIdentifier.
func Sanitize(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrInvalidIdentifier)
	}

	cleaned := invalidIdentChars.ReplaceAllString(input, "")
	if len(cleaned) > maxIdentifierLen {
		cleaned = cleaned[:maxIdentifierLen]
	}
	if cleaned == "" {
		return "", fmt.Errorf("%w: empty after sanitizing %q", ErrInvalidIdentifier, input)
	}

	return strings.ToLower(cleaned), nil
}

// randomSegment returns n characters drawn from segmentAlphabet using
// crypto/rand.
func randomSegment(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = segmentAlphabet[int(b)%len(segmentAlphabet)]
	}
	return string(out), nil
}

// generateSecret returns a hex-encoded secret with secretBytes bytes of
// entropy.
func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
