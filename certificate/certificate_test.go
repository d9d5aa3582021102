package certificate_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycorp/ramf-go/certificate"
	"github.com/relaycorp/ramf-go/keys"
)

func generateKeyPair(t *testing.T) *keys.KeyPair {
	t.Helper()
	kp, err := keys.GenerateRSAKeyPair(keys.DefaultModulusBits)
	require.NoError(t, err)
	return kp
}

func issueSelfSignedRoot(t *testing.T, clk clock.Clock) (*certificate.Certificate, *keys.KeyPair) {
	t.Helper()
	kp := generateKeyPair(t)
	cert, err := certificate.Issue(context.Background(), certificate.IssueParams{
		CommonName:       "root",
		SubjectPublicKey: kp.Public,
		IssuerPrivateKey: kp.Private,
		ValidityEnd:      clk.Now().Add(24 * time.Hour),
		IsCA:             true,
		PathLenConstraint: 2,
		Clock:            clk,
	})
	require.NoError(t, err)
	return cert, kp
}

func TestIssueSelfSignedCA(t *testing.T) {
	clk := clock.NewFake()
	cert, kp := issueSelfSignedRoot(t, clk)

	assert.True(t, cert.IsCA())
	assert.Equal(t, 2, cert.PathLenConstraint())

	cn, err := cert.CommonName()
	require.NoError(t, err)
	assert.Equal(t, "root", cn)

	ski, ok := cert.SubjectKeyIdentifier()
	require.True(t, ok)
	aki, ok := cert.AuthorityKeyIdentifier()
	require.True(t, ok)
	assert.Equal(t, ski, aki)
	assert.Equal(t, kp.Public, cert.PublicKey())
}

func TestIssueRejectsPathLenWithoutCA(t *testing.T) {
	clk := clock.NewFake()
	kp := generateKeyPair(t)

	_, err := certificate.Issue(context.Background(), certificate.IssueParams{
		CommonName:        "leaf",
		SubjectPublicKey:  kp.Public,
		IssuerPrivateKey:  kp.Private,
		ValidityEnd:       clk.Now().Add(time.Hour),
		IsCA:              false,
		PathLenConstraint: 1,
		Clock:             clk,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Subject should be a CA if pathLenConstraint=1")
}

func TestIssueRejectsOutOfRangePathLen(t *testing.T) {
	clk := clock.NewFake()
	kp := generateKeyPair(t)

	for _, pathLen := range []int{-1, 3} {
		_, err := certificate.Issue(context.Background(), certificate.IssueParams{
			CommonName:        "x",
			SubjectPublicKey:  kp.Public,
			IssuerPrivateKey:  kp.Private,
			ValidityEnd:       clk.Now().Add(time.Hour),
			IsCA:              true,
			PathLenConstraint: pathLen,
			Clock:             clk,
		})
		require.Error(t, err)
	}
}

func TestIssueRejectsEndBeforeOrEqualStart(t *testing.T) {
	clk := clock.NewFake()
	kp := generateKeyPair(t)
	now := clk.Now()

	_, err := certificate.Issue(context.Background(), certificate.IssueParams{
		CommonName:       "x",
		SubjectPublicKey: kp.Public,
		IssuerPrivateKey: kp.Private,
		ValidityStart:    now,
		ValidityEnd:      now,
		Clock:            clk,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The end date must be later than the start date")
}

func TestIssueIntermediateAndEndEntity(t *testing.T) {
	clk := clock.NewFake()
	root, rootKP := issueSelfSignedRoot(t, clk)

	intermediateKP := generateKeyPair(t)
	intermediate, err := certificate.Issue(context.Background(), certificate.IssueParams{
		CommonName:        "intermediate",
		SubjectPublicKey:  intermediateKP.Public,
		IssuerPrivateKey:  rootKP.Private,
		ValidityEnd:       clk.Now().Add(12 * time.Hour),
		IssuerCertificate: root,
		IsCA:              true,
		PathLenConstraint: 1,
		Clock:             clk,
	})
	require.NoError(t, err)

	endEntityKP := generateKeyPair(t)
	endEntity, err := certificate.Issue(context.Background(), certificate.IssueParams{
		CommonName:        "leaf",
		SubjectPublicKey:  endEntityKP.Public,
		IssuerPrivateKey:  intermediateKP.Private,
		ValidityEnd:       clk.Now().Add(time.Hour),
		IssuerCertificate: intermediate,
		Clock:             clk,
	})
	require.NoError(t, err)

	path, err := endEntity.GetCertificationPath([]*certificate.Certificate{intermediate}, []*certificate.Certificate{root})
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.True(t, path[0] == endEntity)
	assert.True(t, path[1] == intermediate)
	assert.True(t, path[2] == root)
}

func TestGetCertificationPathFailsWithoutTrustedCAs(t *testing.T) {
	clk := clock.NewFake()
	cert, _ := issueSelfSignedRoot(t, clk)

	_, err := cert.GetCertificationPath(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to initialize path builder; set of trusted CAs might be empty")
}

func TestGetCertificationPathFailsWithoutAPath(t *testing.T) {
	clk := clock.NewFake()
	cert, _ := issueSelfSignedRoot(t, clk)
	unrelatedRoot, _ := issueSelfSignedRoot(t, clk)

	_, err := cert.GetCertificationPath(nil, []*certificate.Certificate{unrelatedRoot})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No certification path could be found")
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	clk := clock.NewFake()
	cert, _ := issueSelfSignedRoot(t, clk)

	decoded, err := certificate.Deserialize(cert.Serialize())
	require.NoError(t, err)
	assert.True(t, cert.Equal(decoded))
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	_, err := certificate.Deserialize([]byte("Not a certificate"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Value should be a DER-encoded, X.509 v3 certificate")
}

func TestValidateChecksValidityWindow(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	kp := generateKeyPair(t)

	future := clk.Now().Add(time.Hour)
	cert, err := certificate.Issue(context.Background(), certificate.IssueParams{
		CommonName:       "future",
		SubjectPublicKey: kp.Public,
		IssuerPrivateKey: kp.Private,
		ValidityStart:    future,
		ValidityEnd:      future.Add(time.Hour),
		Clock:            clk,
	})
	require.NoError(t, err)

	err = cert.Validate(clk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Certificate is not yet valid")

	clk.Add(2 * time.Hour)
	assert.NoError(t, cert.Validate(clk))

	clk.Add(24 * time.Hour)
	err = cert.Validate(clk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Certificate already expired")
}

func TestSubjectPrivateAddress(t *testing.T) {
	clk := clock.NewFake()
	cert, _ := issueSelfSignedRoot(t, clk)

	address := cert.SubjectPrivateAddress()
	assert.Len(t, address, 65)
	assert.Equal(t, byte('0'), address[0])
}
