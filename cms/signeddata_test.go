package cms_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycorp/ramf-go/certificate"
	"github.com/relaycorp/ramf-go/cms"
	"github.com/relaycorp/ramf-go/keys"
	"github.com/relaycorp/ramf-go/rsapss"
)

func issueTestCertificate(t *testing.T) (*certificate.Certificate, *keys.KeyPair) {
	t.Helper()
	kp, err := keys.GenerateRSAKeyPair(keys.DefaultModulusBits)
	require.NoError(t, err)

	clk := clock.NewFake()
	cert, err := certificate.Issue(context.Background(), certificate.IssueParams{
		CommonName:       "signer",
		SubjectPublicKey: kp.Public,
		IssuerPrivateKey: kp.Private,
		ValidityEnd:      clk.Now().Add(time.Hour),
		Clock:            clk,
	})
	require.NoError(t, err)
	return cert, kp
}

func TestSignVerifyRoundTrip(t *testing.T) {
	cert, kp := issueTestCertificate(t)
	plaintext := []byte("the payload")

	signedData, err := cms.Sign(context.Background(), plaintext, kp.Private, cert, nil, rsapss.SHA256, nil)
	require.NoError(t, err)

	serialized := signedData.Serialize()
	decoded, err := cms.Deserialize(serialized)
	require.NoError(t, err)

	signer, certs, err := decoded.Verify(plaintext, nil)
	require.NoError(t, err)
	assert.True(t, cert.Equal(signer))
	require.Len(t, certs, 1)
}

func TestSignAttachesCACertificates(t *testing.T) {
	cert, kp := issueTestCertificate(t)
	caCert, _ := issueTestCertificate(t)
	plaintext := []byte("data")

	signedData, err := cms.Sign(context.Background(), plaintext, kp.Private, cert, []*certificate.Certificate{caCert}, rsapss.SHA256, nil)
	require.NoError(t, err)

	decoded, err := cms.Deserialize(signedData.Serialize())
	require.NoError(t, err)

	_, certs, err := decoded.Verify(nil, nil)
	require.NoError(t, err)
	assert.Len(t, certs, 2)
}

func TestVerifyFailsOnPlaintextMismatch(t *testing.T) {
	cert, kp := issueTestCertificate(t)
	signedData, err := cms.Sign(context.Background(), []byte("original"), kp.Private, cert, nil, rsapss.SHA256, nil)
	require.NoError(t, err)

	decoded, err := cms.Deserialize(signedData.Serialize())
	require.NoError(t, err)

	_, _, err = decoded.Verify([]byte("different"), nil)
	require.Error(t, err)
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	_, err := cms.Deserialize([]byte("not a SignedData"))
	require.Error(t, err)
}

func TestSignWithDifferentHashAlgorithms(t *testing.T) {
	cert, kp := issueTestCertificate(t)

	for _, h := range []rsapss.HashAlgorithm{rsapss.SHA256, rsapss.SHA384, rsapss.SHA512} {
		signedData, err := cms.Sign(context.Background(), []byte("msg"), kp.Private, cert, nil, h, nil)
		require.NoError(t, err)

		decoded, err := cms.Deserialize(signedData.Serialize())
		require.NoError(t, err)

		_, _, err = decoded.Verify([]byte("msg"), nil)
		require.NoError(t, err)
	}
}
