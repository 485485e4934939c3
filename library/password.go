package library

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Algorithm identifies how a stored credential is encoded.
type Algorithm string

const (
	AlgorithmLegacy   Algorithm = "plaintext"
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmPBKDF2   Algorithm = "pbkdf2"
	AlgorithmScrypt   Algorithm = "scrypt"
)

// Defaults of the pbkdf2/scrypt method strings ("pbkdf2:sha256:600000",
// "scrypt:32768:8:1") when parameters are omitted.
const (
	defaultPBKDF2Iterations = 600000
	scryptKeyLen            = 64
)

var errMalformedHash = errors.New("malformed password hash")

// DetectAlgorithm reads the algorithm tag of a stored credential. Anything
// without a recognized tag is a legacy plaintext password, and so is a value
// that starts like a bcrypt or argon2id hash but does not parse as one.
func DetectAlgorithm(stored string) Algorithm {
	switch {
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		if _, err := bcrypt.Cost([]byte(stored)); err != nil {
			return AlgorithmLegacy
		}
		return AlgorithmBcrypt
	case strings.HasPrefix(stored, "$argon2id$"):
		if _, err := parseArgon2id(stored); err != nil {
			return AlgorithmLegacy
		}
		return AlgorithmArgon2id
	case strings.HasPrefix(stored, "pbkdf2:"):
		return AlgorithmPBKDF2
	case strings.HasPrefix(stored, "scrypt:"):
		return AlgorithmScrypt
	default:
		return AlgorithmLegacy
	}
}

// Hasher creates bcrypt credentials and verifies every supported format.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using the given bcrypt cost; out-of-range costs
// fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash encodes a password with bcrypt.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches the stored credential. Legacy
// plaintext credentials are compared in constant time. Malformed hashes never
// match.
func (h *Hasher) Verify(stored, password string) bool {
	var err error
	switch DetectAlgorithm(stored) {
	case AlgorithmBcrypt:
		err = bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	case AlgorithmArgon2id:
		err = verifyArgon2id(stored, password)
	case AlgorithmPBKDF2:
		err = verifyPBKDF2(stored, password)
	case AlgorithmScrypt:
		err = verifyScrypt(stored, password)
	case AlgorithmLegacy:
		if stored == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
	}
	return err == nil
}

// NeedsRehash reports whether a stored credential should be replaced by a
// fresh bcrypt hash at the configured cost.
func (h *Hasher) NeedsRehash(stored string) bool {
	if DetectAlgorithm(stored) != AlgorithmBcrypt {
		return true
	}
	cost, err := bcrypt.Cost([]byte(stored))
	return err != nil || cost < h.cost
}

type argon2idHash struct {
	memory, time uint32
	threads      uint8
	salt, key    []byte
}

// parseArgon2id reads a PHC string: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
func parseArgon2id(phc string) (argon2idHash, error) {
	var h argon2idHash
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return h, errMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return h, errMalformedHash
	}
	if h.time == 0 || h.threads == 0 {
		return h, errMalformedHash
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return h, errMalformedHash
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return h, errMalformedHash
	}
	return h, nil
}

func verifyArgon2id(phc, password string) error {
	h, err := parseArgon2id(phc)
	if err != nil {
		return err
	}
	computed := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	if subtle.ConstantTimeCompare(computed, h.key) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// splitMethod splits "method$salt$hexhash".
func splitMethod(stored string) (method []string, salt string, sum []byte, err error) {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 {
		return nil, "", nil, errMalformedHash
	}
	sum, err = hex.DecodeString(parts[2])
	if err != nil {
		return nil, "", nil, errMalformedHash
	}
	return strings.Split(parts[0], ":"), parts[1], sum, nil
}

// verifyPBKDF2 checks "pbkdf2:<digest>[:<iterations>]$salt$hexhash".
func verifyPBKDF2(stored, password string) error {
	method, salt, expected, err := splitMethod(stored)
	if err != nil || len(method) < 2 || len(method) > 3 {
		return errMalformedHash
	}

	var digest func() hash.Hash
	switch method[1] {
	case "sha1":
		digest = sha1.New
	case "sha256":
		digest = sha256.New
	case "sha512":
		digest = sha512.New
	default:
		return errMalformedHash
	}

	iterations := defaultPBKDF2Iterations
	if len(method) == 3 {
		if iterations, err = strconv.Atoi(method[2]); err != nil || iterations <= 0 {
			return errMalformedHash
		}
	}

	computed := pbkdf2.Key([]byte(password), []byte(salt), iterations, digest().Size(), digest)
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// verifyScrypt checks "scrypt:<n>:<r>:<p>$salt$hexhash".
func verifyScrypt(stored, password string) error {
	method, salt, expected, err := splitMethod(stored)
	if err != nil || len(method) != 4 {
		return errMalformedHash
	}

	params := make([]int, 3)
	for i, s := range method[1:] {
		if params[i], err = strconv.Atoi(s); err != nil {
			return errMalformedHash
		}
	}

	computed, err := scrypt.Key([]byte(password), []byte(salt), params[0], params[1], params[2], scryptKeyLen)
	if err != nil {
		return errMalformedHash
	}
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
