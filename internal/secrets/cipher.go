package secrets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"github.com/temirov/orgmigrate/internal/githubapi"
)

const (
	publicKeyLengthConstant         = 32
	publicKeyDecodeTemplateConstant = "decode public key for %s: %w"
	publicKeyLengthTemplateConstant = "public key for %s is %d bytes, expected %d"
	sealFailureTemplateConstant     = "seal value for %s: %w"
)

// KeyFetcher retrieves the secret-encryption public key of one scope.
type KeyFetcher func(executionContext context.Context) (githubapi.EncryptionKey, error)

// SealedValue is a secret value encrypted for one scope's public key.
type SealedValue struct {
	EncryptedValue string
	KeyIdentifier  string
}

// Cipher seals secret values into libsodium sealed boxes. Each scope's public
// key is fetched once and cached for the run, so repeated writes against the
// same scope cost a single key fetch.
type Cipher struct {
	cachedKeys map[string]githubapi.EncryptionKey
}

// NewCipher returns a Cipher with an empty key cache.
func NewCipher() *Cipher {
	return &Cipher{cachedKeys: map[string]githubapi.EncryptionKey{}}
}

// Seal encrypts plaintextValue for the scope named by keyScope, fetching and
// caching that scope's public key on first use. The ciphertext is base64 as
// the secrets endpoints expect it.
func (cipher *Cipher) Seal(executionContext context.Context, keyScope string, fetchKey KeyFetcher, plaintextValue string) (SealedValue, error) {
	encryptionKey, keyCached := cipher.cachedKeys[keyScope]
	if !keyCached {
		fetchedKey, fetchError := fetchKey(executionContext)
		if fetchError != nil {
			return SealedValue{}, fetchError
		}
		encryptionKey = fetchedKey
		cipher.cachedKeys[keyScope] = fetchedKey
	}

	decodedKey, decodeError := base64.StdEncoding.DecodeString(encryptionKey.Key)
	if decodeError != nil {
		return SealedValue{}, fmt.Errorf(publicKeyDecodeTemplateConstant, keyScope, decodeError)
	}
	if len(decodedKey) != publicKeyLengthConstant {
		return SealedValue{}, fmt.Errorf(publicKeyLengthTemplateConstant, keyScope, len(decodedKey), publicKeyLengthConstant)
	}

	var recipientKey [publicKeyLengthConstant]byte
	copy(recipientKey[:], decodedKey)

	sealedBytes, sealError := box.SealAnonymous(nil, []byte(plaintextValue), &recipientKey, rand.Reader)
	if sealError != nil {
		return SealedValue{}, fmt.Errorf(sealFailureTemplateConstant, keyScope, sealError)
	}

	return SealedValue{
		EncryptedValue: base64.StdEncoding.EncodeToString(sealedBytes),
		KeyIdentifier:  encryptionKey.Identifier,
	}, nil
}
