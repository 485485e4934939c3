package library

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

func TestDetectAlgorithm(t *testing.T) {
	const bcryptSample = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	tests := []struct {
		stored string
		want   Algorithm
	}{
		{bcryptSample, AlgorithmBcrypt},
		{"$2b$" + bcryptSample[4:], AlgorithmBcrypt},
		{"$2y$" + bcryptSample[4:], AlgorithmBcrypt},
		{"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5", AlgorithmArgon2id},
		{"pbkdf2:sha256:1000$s$ab", AlgorithmPBKDF2},
		{"scrypt:16384:8:1$s$ab", AlgorithmScrypt},
		{"admin123", AlgorithmLegacy},
		{"", AlgorithmLegacy},
		// Plaintext that only looks like a hash.
		{"$2a$10$abc", AlgorithmLegacy},
		{"$argon2id$v=19$x", AlgorithmLegacy},
		{"$argon2id$v=19$m=8192,t=0,p=1$c2FsdHNhbHQ$a2V5a2V5", AlgorithmLegacy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectAlgorithm(tt.stored), tt.stored)
	}
}

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hashed, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmBcrypt, DetectAlgorithm(hashed))
	assert.True(t, h.Verify(hashed, "s3cret"))
	assert.False(t, h.Verify(hashed, "S3cret"))
	assert.False(t, h.NeedsRehash(hashed))

	_, err = h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNeedsRehash(t *testing.T) {
	low := NewHasher(bcrypt.MinCost)
	high := NewHasher(bcrypt.MinCost + 1)

	hashed, err := low.Hash("pw")
	require.NoError(t, err)
	assert.True(t, high.NeedsRehash(hashed))
	assert.True(t, low.NeedsRehash("pw"))
	assert.True(t, low.NeedsRehash("pbkdf2:sha256:1000$salt$00"))
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(bcrypt.MaxCost+1).cost)
}

func TestVerifyLegacyPlaintext(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	assert.True(t, h.Verify("admin123", "admin123"))
	assert.False(t, h.Verify("admin123", "admin1234"))
	assert.False(t, h.Verify("", ""))

	assert.True(t, h.Verify("$2a$oops", "$2a$oops"))
	assert.True(t, h.Verify("$argon2id$pw", "$argon2id$pw"))
	assert.False(t, h.Verify("$2a$oops", "oops"))
}

func TestVerifyArgon2id(t *testing.T) {
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte("pw"), salt, 1, 8*1024, 1, 32)
	phc := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 8*1024, 1, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	h := NewHasher(bcrypt.MinCost)
	assert.True(t, h.Verify(phc, "pw"))
	assert.False(t, h.Verify(phc, "other"))
	assert.False(t, h.Verify("$argon2id$v=19$garbage", "pw"))
}

func TestVerifyPBKDF2(t *testing.T) {
	key := pbkdf2.Key([]byte("pw"), []byte("salty"), 1000, sha256.Size, sha256.New)
	stored := "pbkdf2:sha256:1000$salty$" + hex.EncodeToString(key)

	h := NewHasher(bcrypt.MinCost)
	assert.True(t, h.Verify(stored, "pw"))
	assert.False(t, h.Verify(stored, "nope"))
	assert.False(t, h.Verify("pbkdf2:md5:1000$salty$"+hex.EncodeToString(key), "pw"))
	assert.False(t, h.Verify("pbkdf2:sha256:1000$salty$zz", "pw"))
	assert.False(t, h.Verify("pbkdf2:sha256:-1$salty$"+hex.EncodeToString(key), "pw"))
}

func TestVerifyScrypt(t *testing.T) {
	key, err := scrypt.Key([]byte("pw"), []byte("salt"), 1024, 8, 1, scryptKeyLen)
	require.NoError(t, err)
	stored := "scrypt:1024:8:1$salt$" + hex.EncodeToString(key)

	h := NewHasher(bcrypt.MinCost)
	assert.True(t, h.Verify(stored, "pw"))
	assert.False(t, h.Verify(stored, "nope"))
	assert.False(t, h.Verify("scrypt:1024:8$salt$"+hex.EncodeToString(key), "pw"))
	assert.False(t, h.Verify("scrypt:1000:8:1$salt$"+hex.EncodeToString(key), "pw"))
}
