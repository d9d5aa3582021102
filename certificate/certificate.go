// Package certificate implements issuance, validation, path building, and
// DER (de)serialization of the X.509 v3 certificates RAMF senders are
// authenticated with (spec.md §4.3–§4.5).
package certificate

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"time"

	"github.com/jmhodges/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaycorp/ramf-go/der"
	"github.com/relaycorp/ramf-go/metrics"
	"github.com/relaycorp/ramf-go/oid"
	"github.com/relaycorp/ramf-go/ramferrors"
	"github.com/relaycorp/ramf-go/rlog"
	"github.com/relaycorp/ramf-go/rsapss"
)

var tracer = otel.GetTracerProvider().Tracer("github.com/relaycorp/ramf-go/certificate")

// MinPathLenConstraint and MaxPathLenConstraint bound pathLenConstraint,
// per the Open Question spec.md §9 resolves in favor of the source's
// unconditional [0,2] range.
const (
	MinPathLenConstraint = 0
	MaxPathLenConstraint = 2
)

// Certificate is an immutable holder for a DER-encoded X.509 v3 certificate.
// Two Certificates are equal iff their DER encodings are equal.
type Certificate struct {
	raw []byte

	subjectDN  []byte
	issuerDN   []byte
	serial     *big.Int
	notBefore  time.Time
	notAfter   time.Time
	spki       []byte // the subject's SubjectPublicKeyInfo, full DER
	pubKey     *rsa.PublicKey
	extensions []pkix.Extension
	sigAlg     pkix.AlgorithmIdentifier
	tbsRaw     []byte
	signature  []byte
}

// tbsCertificate mirrors RFC 5280's TBSCertificate, built and parsed by
// hand because this library needs a BMPString subject CommonName and
// explicit RSASSA-PSS parameters that crypto/x509.CreateCertificate cannot
// produce.
type tbsCertificate struct {
	Raw                asn1.RawContent
	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       *big.Int
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Issuer             asn1.RawValue
	Validity           validity
	Subject            asn1.RawValue
	PublicKey          asn1.RawValue
	Extensions         []pkix.Extension `asn1:"optional,explicit,tag:3"`
}

type validity struct {
	NotBefore time.Time `asn1:"generalized"`
	NotAfter  time.Time `asn1:"generalized"`
}

type certificateASN1 struct {
	Raw                asn1.RawContent
	TBSCertificate     tbsCertificate
	SignatureAlgorithm pkix.AlgorithmIdentifier
	SignatureValue     asn1.BitString
}

// IssueParams configures Issue. SubjectPublicKey, IssuerPrivateKey,
// CommonName, and ValidityEnd are required; everything else has the
// spec.md §4.3 default noted in its comment.
type IssueParams struct {
	CommonName       string
	SubjectPublicKey *rsa.PublicKey
	IssuerPrivateKey *rsa.PrivateKey

	// ValidityStart defaults to Clock.Now() (or time.Now() if Clock is nil).
	ValidityStart time.Time
	ValidityEnd   time.Time

	// IssuerCertificate is nil for a self-issued certificate.
	IssuerCertificate *Certificate

	// IsCA defaults to false.
	IsCA bool
	// PathLenConstraint defaults to 0 and is only meaningful when IsCA is true.
	PathLenConstraint int

	// Clock defaults to the real wall clock.
	Clock clock.Clock
	// Metrics and Logger default to no-ops when nil.
	Metrics *metrics.Metrics
	Logger  rlog.Logger
}

// Issue builds and self-signs (or CA-signs) a new Certificate per spec.md §4.3.
func Issue(ctx context.Context, p IssueParams) (*Certificate, error) {
	if !p.IsCA && p.PathLenConstraint != 0 {
		return nil, ramferrors.NewCertificateError(nil, "Subject should be a CA if pathLenConstraint=%d", p.PathLenConstraint)
	}
	if p.PathLenConstraint < MinPathLenConstraint || p.PathLenConstraint > MaxPathLenConstraint {
		return nil, ramferrors.NewCertificateError(nil, "pathLenConstraint should be between 0 and 2 (got %d)", p.PathLenConstraint)
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	validityStart := p.ValidityStart
	if validityStart.IsZero() {
		validityStart = clk.Now()
	}
	if !p.ValidityEnd.After(validityStart) {
		return nil, ramferrors.NewCertificateError(nil, "The end date must be later than the start date")
	}

	subjectSPKI, err := x509.MarshalPKIXPublicKey(p.SubjectPublicKey)
	if err != nil {
		return nil, ramferrors.NewCertificateError(err, "failed to encode subject public key")
	}
	ski := sha256.Sum256(subjectSPKI)

	var issuerDN []byte
	var aki [32]byte
	if p.IssuerCertificate != nil {
		hasBC := false
		issuerIsCA := false
		hasSKI := false
		for _, ext := range p.IssuerCertificate.extensions {
			if ext.Id.Equal(oid.BasicConstraints) {
				hasBC = true
				bc, err := parseBasicConstraints(ext.Value)
				if err != nil {
					return nil, ramferrors.NewCertificateError(err, "Issuer certificate should have basic constraints extension")
				}
				issuerIsCA = bc.isCA
			}
			if ext.Id.Equal(oid.SubjectKeyIdentifier) {
				hasSKI = true
			}
		}
		if !hasBC {
			return nil, ramferrors.NewCertificateError(nil, "Issuer certificate should have basic constraints extension")
		}
		if !issuerIsCA {
			return nil, ramferrors.NewCertificateError(nil, "Issuer certificate should be marked as CA")
		}
		if !hasSKI {
			return nil, ramferrors.NewCertificateError(nil, "Issuer must have the SubjectKeyIdentifier extension")
		}
		issuerDN = p.IssuerCertificate.subjectDN
		aki = sha256.Sum256(p.IssuerCertificate.spki)
	} else {
		dn, err := buildSubjectDN(p.CommonName)
		if err != nil {
			return nil, err
		}
		issuerDN = dn
		aki = ski
	}

	subjectDN, err := buildSubjectDN(p.CommonName)
	if err != nil {
		return nil, err
	}

	serial, err := generateSerial()
	if err != nil {
		return nil, ramferrors.NewCertificateError(err, "failed to generate serial number")
	}

	extensions, err := buildExtensions(p.IsCA, p.PathLenConstraint, aki[:], ski[:])
	if err != nil {
		return nil, err
	}

	sigAlg := rsapss.Parameters(rsapss.SHA256)

	tbs := tbsCertificate{
		Version:            2, // v3
		SerialNumber:       serial,
		SignatureAlgorithm: sigAlg,
		Issuer:             asn1.RawValue{FullBytes: issuerDN},
		Validity:           validity{NotBefore: validityStart.UTC(), NotAfter: p.ValidityEnd.UTC()},
		Subject:            asn1.RawValue{FullBytes: subjectDN},
		PublicKey:          asn1.RawValue{FullBytes: subjectSPKI},
		Extensions:         extensions,
	}
	tbsDER, err := asn1.Marshal(tbs)
	if err != nil {
		return nil, ramferrors.NewCertificateError(err, "failed to encode TBSCertificate")
	}

	_, span := tracer.Start(ctx, "signing certificate", trace.WithAttributes(
		attribute.String("commonName", p.CommonName),
		attribute.String("serial", serial.String()),
		attribute.Bool("isCA", p.IsCA),
	))
	signature, err := rsapss.Sign(p.IssuerPrivateKey, rsapss.SHA256, tbsDER)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, ramferrors.NewCertificateError(err, "failed to sign certificate")
	}
	span.End()

	certDER, err := asn1.Marshal(certificateASN1{
		TBSCertificate:     tbs,
		SignatureAlgorithm: sigAlg,
		SignatureValue:     asn1.BitString{Bytes: signature, BitLength: len(signature) * 8},
	})
	if err != nil {
		return nil, ramferrors.NewCertificateError(err, "failed to encode certificate")
	}

	cert, err := Deserialize(certDER)
	if err != nil {
		return nil, err
	}

	if err := lintCertificate(cert, p.Metrics, p.Logger); err != nil {
		return nil, err
	}

	if p.Metrics != nil {
		isCALabel := "false"
		if p.IsCA {
			isCALabel = "true"
		}
		p.Metrics.CertificatesIssued.WithLabelValues(isCALabel).Inc()
	}
	if p.Logger != nil {
		p.Logger.AuditObject("Issued certificate", map[string]any{
			"commonName": p.CommonName,
			"serial":     serial.String(),
			"isCA":       p.IsCA,
		})
	}

	return cert, nil
}

func generateSerial() (*big.Int, error) {
	// "a cryptographically random positive 64-bit integer": draw 63 random
	// bits so the top bit of the resulting big.Int is never set, keeping it
	// unambiguously positive once DER-encoded as an INTEGER.
	max := new(big.Int).Lsh(big.NewInt(1), 63)
	return rand.Int(rand.Reader, max)
}

// Serialize returns the DER encoding of the X.509 v3 certificate.
func (c *Certificate) Serialize() []byte {
	out := make([]byte, len(c.raw))
	copy(out, c.raw)
	return out
}

// Deserialize reconstructs a Certificate from DER bytes.
func Deserialize(data []byte) (*Certificate, error) {
	var parsed certificateASN1
	rest, err := asn1.Unmarshal(data, &parsed)
	if err != nil || len(rest) != 0 {
		return nil, ramferrors.NewCertificateError(err, "Value should be a DER-encoded, X.509 v3 certificate")
	}
	if parsed.TBSCertificate.Version != 2 {
		return nil, ramferrors.NewCertificateError(nil, "Value should be a DER-encoded, X.509 v3 certificate")
	}
	pub, err := x509.ParsePKIXPublicKey(parsed.TBSCertificate.PublicKey.FullBytes)
	if err != nil {
		return nil, ramferrors.NewCertificateError(err, "Value should be a DER-encoded, X.509 v3 certificate")
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ramferrors.NewCertificateError(nil, "Value should be a DER-encoded, X.509 v3 certificate")
	}

	raw := make([]byte, len(data))
	copy(raw, data)

	return &Certificate{
		raw:        raw,
		subjectDN:  parsed.TBSCertificate.Subject.FullBytes,
		issuerDN:   parsed.TBSCertificate.Issuer.FullBytes,
		serial:     parsed.TBSCertificate.SerialNumber,
		notBefore:  parsed.TBSCertificate.Validity.NotBefore,
		notAfter:   parsed.TBSCertificate.Validity.NotAfter,
		spki:       parsed.TBSCertificate.PublicKey.FullBytes,
		pubKey:     rsaPub,
		extensions: parsed.TBSCertificate.Extensions,
		sigAlg:     parsed.SignatureAlgorithm,
		tbsRaw:     []byte(parsed.TBSCertificate.Raw),
		signature:  parsed.SignatureValue.RightAlign(),
	}, nil
}

// verifyTBSSignature reports whether subject's TBSCertificate signature
// verifies under issuer's public key. Certificates issued by this module
// always sign under SHA-256, so that's the only digest checked here.
func verifyTBSSignature(subject *Certificate, issuer *Certificate) bool {
	return rsapss.Verify(issuer.pubKey, rsapss.SHA256, subject.tbsRaw, subject.signature) == nil
}

// Equal reports whether c and other have identical DER encodings.
func (c *Certificate) Equal(other *Certificate) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(c.raw, other.raw)
}

// CommonName returns the subject's CN.
func (c *Certificate) CommonName() (string, error) {
	return commonNameFromDN(c.subjectDN)
}

// SubjectPrivateAddress returns "0" followed by the lowercase hex SHA-256 of
// the subject's SubjectPublicKeyInfo encoding — a 65-character identifier.
func (c *Certificate) SubjectPrivateAddress() string {
	sum := sha256.Sum256(c.spki)
	return "0" + hexLower(sum[:])
}

// PublicKey returns the certificate's subject public key.
func (c *Certificate) PublicKey() *rsa.PublicKey { return c.pubKey }

// SerialNumber returns the certificate's serial number.
func (c *Certificate) SerialNumber() *big.Int { return new(big.Int).Set(c.serial) }

// IssuerDER and SubjectDER return the raw DER encoding of the certificate's
// issuer and subject Name fields, for callers (the cms package's
// IssuerAndSerialNumber signer identifier) that need to match certificates
// by name rather than by decoded CommonName.
func (c *Certificate) IssuerDER() []byte { return append([]byte(nil), c.issuerDN...) }
func (c *Certificate) SubjectDER() []byte { return append([]byte(nil), c.subjectDN...) }

// NotBefore and NotAfter return the certificate's validity interval, in UTC.
func (c *Certificate) NotBefore() time.Time { return c.notBefore }
func (c *Certificate) NotAfter() time.Time  { return c.notAfter }

// IsCA and PathLenConstraint report the certificate's BasicConstraints extension.
func (c *Certificate) IsCA() bool {
	bc, ok := c.basicConstraints()
	return ok && bc.isCA
}

func (c *Certificate) PathLenConstraint() int {
	bc, ok := c.basicConstraints()
	if !ok {
		return 0
	}
	return bc.pathLen
}

func (c *Certificate) basicConstraints() (basicConstraints, bool) {
	for _, ext := range c.extensions {
		if ext.Id.Equal(oid.BasicConstraints) {
			bc, err := parseBasicConstraints(ext.Value)
			if err != nil {
				return basicConstraints{}, false
			}
			return bc, true
		}
	}
	return basicConstraints{}, false
}

// SubjectKeyIdentifier and AuthorityKeyIdentifier return the raw key
// identifier bytes (SHA-256 digests) carried by the corresponding extensions.
func (c *Certificate) SubjectKeyIdentifier() ([]byte, bool) {
	return c.extensionOctets(oid.SubjectKeyIdentifier, false)
}

func (c *Certificate) AuthorityKeyIdentifier() ([]byte, bool) {
	return c.extensionOctets(oid.AuthorityKeyIdentifier, true)
}

func (c *Certificate) extensionOctets(id asn1.ObjectIdentifier, isAKI bool) ([]byte, bool) {
	for _, ext := range c.extensions {
		if !ext.Id.Equal(id) {
			continue
		}
		if isAKI {
			aki, err := parseAuthorityKeyIdentifier(ext.Value)
			if err != nil {
				return nil, false
			}
			return aki, true
		}
		ski, err := parseSubjectKeyIdentifier(ext.Value)
		if err != nil {
			return nil, false
		}
		return ski, true
	}
	return nil, false
}

const hexDigits = "0123456789abcdef"

func hexLower(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0xf]
	}
	return string(out)
}
