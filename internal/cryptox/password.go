// Package cryptox implements password hashing for stored credentials.
//
// Two stored formats are understood:
//
//	argon2id:m=65536,t=1,p=4:<salt>:<digest>   secure, produced by Hash
//	<sha256 hex or base64>                      legacy, verify-only
//
// The presence of ':' selects the secure format. A successful legacy
// verification reports NeedsMigration so callers can rehash transparently.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/busauth/internal/shared"
	"golang.org/x/crypto/argon2"
)

const (
	secureAlgorithm = "argon2id"
	hashDelimiter   = ":"
)

var ErrMalformedHash = errors.New("malformed password hash")

// Params are the argon2id cost parameters used for new hashes.
type Params struct {
	Memory     uint32 // KiB
	Iterations uint32
	Threads    uint8
	SaltLength int
	KeyLength  uint32
}

var DefaultParams = Params{
	Memory:     64 * 1024,
	Iterations: 1,
	Threads:    4,
	SaltLength: 16,
	KeyLength:  32,
}

// Verification is the outcome of checking a password against a stored hash.
type Verification struct {
	Valid          bool
	NeedsMigration bool
}

type Hasher struct {
	params Params

	dummyOnce sync.Once
	dummy     string
}

// NewHasher returns a Hasher; zero fields of p fall back to DefaultParams.
func NewHasher(p Params) *Hasher {
	if p.Memory == 0 {
		p.Memory = DefaultParams.Memory
	}
	if p.Iterations == 0 {
		p.Iterations = DefaultParams.Iterations
	}
	if p.Threads == 0 {
		p.Threads = DefaultParams.Threads
	}
	if p.SaltLength == 0 {
		p.SaltLength = DefaultParams.SaltLength
	}
	if p.KeyLength == 0 {
		p.KeyLength = DefaultParams.KeyLength
	}
	return &Hasher{params: p}
}

func deriveKey(password, salt []byte, p Params, keyLen uint32) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Threads, keyLen)
}

// Hash produces a secure-format hash of password with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt, err := shared.RandomBytes(h.params.SaltLength)
	if err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := deriveKey([]byte(password), salt, h.params, h.params.KeyLength)
	defer shared.WipeByteArray(key)

	return strings.Join([]string{
		secureAlgorithm,
		fmt.Sprintf("m=%d,t=%d,p=%d", h.params.Memory, h.params.Iterations, h.params.Threads),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, hashDelimiter), nil
}

// Verify checks password against stored. Mismatches are reported through
// Verification.Valid; an error is returned only for unparsable secure hashes.
func (h *Hasher) Verify(password, stored string) (Verification, error) {
	if IsLegacyHash(stored) {
		if verifyLegacy(password, stored) {
			return Verification{Valid: true, NeedsMigration: true}, nil
		}
		return Verification{}, nil
	}

	ok, err := verifySecure(password, stored)
	if err != nil {
		return Verification{}, err
	}
	return Verification{Valid: ok}, nil
}

// VerifyDummy spends the same work as a secure verification against a fixed
// hash. Used when there is no stored hash to compare with.
func (h *Hasher) VerifyDummy(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = h.Hash("busauth-dummy-password")
	})
	if h.dummy == "" {
		return
	}
	_, _ = verifySecure(password, h.dummy)
}

// IsLegacyHash reports whether stored is in the legacy, undelimited format.
func IsLegacyHash(stored string) bool {
	return !strings.Contains(stored, hashDelimiter)
}

// LegacyHash returns the legacy hex SHA-256 digest of password.
// Only used to seed fixtures and to import old accounts.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func verifyLegacy(password, stored string) bool {
	if stored == "" {
		return false
	}
	sum := sha256.Sum256([]byte(password))

	var candidate string
	switch len(stored) {
	case hex.EncodedLen(sha256.Size):
		candidate = hex.EncodeToString(sum[:])
		stored = strings.ToLower(stored)
	case base64.StdEncoding.EncodedLen(sha256.Size):
		candidate = base64.StdEncoding.EncodeToString(sum[:])
	default:
		return false
	}

	return subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) == 1
}

func verifySecure(password, stored string) (bool, error) {
	parts := strings.Split(stored, hashDelimiter)
	if len(parts) != 4 || parts[0] != secureAlgorithm {
		return false, ErrMalformedHash
	}

	var p Params
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Threads); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Threads == 0 {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false, ErrMalformedHash
	}

	got := deriveKey([]byte(password), salt, p, uint32(len(want)))
	defer shared.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
