package rsapss_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycorp/ramf-go/rsapss"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

func TestSignVerifyRoundTrip(t *testing.T) {
	priv := generateKey(t)
	message := []byte("the quick brown fox")

	for _, h := range []rsapss.HashAlgorithm{rsapss.SHA256, rsapss.SHA384, rsapss.SHA512} {
		sig, err := rsapss.Sign(priv, h, message)
		require.NoError(t, err)
		require.NoError(t, rsapss.Verify(&priv.PublicKey, h, message, sig))
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	priv := generateKey(t)
	sig, err := rsapss.Sign(priv, rsapss.SHA256, []byte("original"))
	require.NoError(t, err)

	err = rsapss.Verify(&priv.PublicKey, rsapss.SHA256, []byte("tampered"), sig)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv := generateKey(t)
	other := generateKey(t)
	message := []byte("signed by priv")

	sig, err := rsapss.Sign(priv, rsapss.SHA256, message)
	require.NoError(t, err)

	err = rsapss.Verify(&other.PublicKey, rsapss.SHA256, message, sig)
	assert.Error(t, err)
}

func TestParametersNameDigestAlgorithm(t *testing.T) {
	for _, h := range []rsapss.HashAlgorithm{rsapss.SHA256, rsapss.SHA384, rsapss.SHA512} {
		params := rsapss.Parameters(h)
		_, hashOID := h.CryptoHash()

		back, err := rsapss.HashAlgorithmForOID(hashOID)
		require.NoError(t, err)
		assert.Equal(t, h, back)
		assert.NotEmpty(t, params.Parameters.FullBytes)
	}
}

func TestHashAlgorithmForOIDRejectsUnknown(t *testing.T) {
	_, err := rsapss.HashAlgorithmForOID([]int{1, 2, 3})
	assert.Error(t, err)
}
