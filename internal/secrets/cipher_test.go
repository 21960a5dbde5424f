package secrets_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"

	"github.com/temirov/orgmigrate/internal/githubapi"
	"github.com/temirov/orgmigrate/internal/secrets"
)

func TestCipherSealRoundTrip(testInstance *testing.T) {
	recipientPublicKey, recipientPrivateKey, keyError := box.GenerateKey(rand.Reader)
	require.NoError(testInstance, keyError)

	cipher := secrets.NewCipher()
	fetchCount := 0
	fetchKey := func(context.Context) (githubapi.EncryptionKey, error) {
		fetchCount++
		return githubapi.EncryptionKey{
			Identifier: "key-1",
			Key:        base64.StdEncoding.EncodeToString(recipientPublicKey[:]),
		}, nil
	}

	sealedValue, sealError := cipher.Seal(context.Background(), "organization", fetchKey, "hunter2")
	require.NoError(testInstance, sealError)
	require.Equal(testInstance, "key-1", sealedValue.KeyIdentifier)

	ciphertext, decodeError := base64.StdEncoding.DecodeString(sealedValue.EncryptedValue)
	require.NoError(testInstance, decodeError)

	plaintext, opened := box.OpenAnonymous(nil, ciphertext, recipientPublicKey, recipientPrivateKey)
	require.True(testInstance, opened)
	require.Equal(testInstance, "hunter2", string(plaintext))

	_, secondSealError := cipher.Seal(context.Background(), "organization", fetchKey, "hunter3")
	require.NoError(testInstance, secondSealError)
	require.Equal(testInstance, 1, fetchCount)
}

func TestCipherFetchesPerScope(testInstance *testing.T) {
	recipientPublicKey, _, keyError := box.GenerateKey(rand.Reader)
	require.NoError(testInstance, keyError)

	cipher := secrets.NewCipher()
	fetchCount := 0
	fetchKey := func(context.Context) (githubapi.EncryptionKey, error) {
		fetchCount++
		return githubapi.EncryptionKey{
			Identifier: "key-2",
			Key:        base64.StdEncoding.EncodeToString(recipientPublicKey[:]),
		}, nil
	}

	_, firstSealError := cipher.Seal(context.Background(), "repository/svc-a", fetchKey, "value")
	require.NoError(testInstance, firstSealError)
	_, secondSealError := cipher.Seal(context.Background(), "repository/svc-b", fetchKey, "value")
	require.NoError(testInstance, secondSealError)
	require.Equal(testInstance, 2, fetchCount)
}

func TestCipherRejectsMalformedKeys(testInstance *testing.T) {
	cipher := secrets.NewCipher()

	_, invalidEncodingError := cipher.Seal(context.Background(), "organization", func(context.Context) (githubapi.EncryptionKey, error) {
		return githubapi.EncryptionKey{Identifier: "key-3", Key: "not base64!"}, nil
	}, "value")
	require.Error(testInstance, invalidEncodingError)

	cipher = secrets.NewCipher()
	_, shortKeyError := cipher.Seal(context.Background(), "organization", func(context.Context) (githubapi.EncryptionKey, error) {
		return githubapi.EncryptionKey{Identifier: "key-4", Key: base64.StdEncoding.EncodeToString([]byte("short"))}, nil
	}, "value")
	require.Error(testInstance, shortKeyError)
}
