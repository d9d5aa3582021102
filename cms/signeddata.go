// Package cms implements the CMS SignedData and EnvelopedData subset RAMF
// relies on (RFC 5652): attached-content signing under RSA-PSS-MGF1, and
// AES-GCM content encryption under RSA-OAEP key transport.
package cms

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaycorp/ramf-go/certificate"
	"github.com/relaycorp/ramf-go/der"
	"github.com/relaycorp/ramf-go/metrics"
	"github.com/relaycorp/ramf-go/oid"
	"github.com/relaycorp/ramf-go/ramferrors"
	"github.com/relaycorp/ramf-go/rsapss"
)

var tracer = otel.GetTracerProvider().Tracer("github.com/relaycorp/ramf-go/cms")

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"optional,explicit,tag:0"`
}

type encapsulatedContentInfo struct {
	EContentType asn1.ObjectIdentifier
	EContent     asn1.RawValue `asn1:"optional,explicit,tag:0"`
}

type issuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

type signerInfo struct {
	Version            int
	SID                issuerAndSerialNumber
	DigestAlgorithm    pkix.AlgorithmIdentifier
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          []byte
}

type signedDataASN1 struct {
	Version          int
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo encapsulatedContentInfo
	Certificates     asn1.RawValue `asn1:"optional,tag:0"`
	SignerInfos      []signerInfo  `asn1:"set"`
}

// SignedData is an attached-content CMS SignedData value with exactly one
// SignerInfo (spec.md §4.6).
type SignedData struct {
	plaintext    []byte
	hash         rsapss.HashAlgorithm
	signature    []byte
	signerSID    issuerAndSerialNumber
	certificates []*certificate.Certificate
}

// Sign produces a SignedData over plaintext, attaching signerCertificate and
// any caCertificates alongside exactly one SignerInfo computed with
// RSA-PSS-MGF1 under hashingAlgorithm (default SHA-256 if the zero value).
func Sign(ctx context.Context, plaintext []byte, signerPrivateKey *rsa.PrivateKey, signerCertificate *certificate.Certificate, caCertificates []*certificate.Certificate, hashingAlgorithm rsapss.HashAlgorithm, m *metrics.Metrics) (*SignedData, error) {
	_, span := tracer.Start(ctx, "signing content", trace.WithAttributes(
		attribute.String("serial", signerCertificate.SerialNumber().String()),
	))
	signature, err := rsapss.Sign(signerPrivateKey, hashingAlgorithm, plaintext)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		if m != nil {
			m.SignatureErrors.WithLabelValues("sign").Inc()
		}
		return nil, ramferrors.NewCMSError(err, "failed to sign content")
	}
	span.End()

	certs := append([]*certificate.Certificate{signerCertificate}, caCertificates...)

	if m != nil {
		_, digestOID := hashingAlgorithm.CryptoHash()
		m.SignatureCount.WithLabelValues(digestOID.String()).Inc()
	}

	return &SignedData{
		plaintext: plaintext,
		hash:      hashingAlgorithm,
		signature: signature,
		signerSID: issuerAndSerialNumber{
			Issuer:       asn1.RawValue{FullBytes: signerCertificate.IssuerDER()},
			SerialNumber: signerCertificate.SerialNumber(),
		},
		certificates: certs,
	}, nil
}

// Serialize returns the DER encoding of the ContentInfo wrapping this SignedData.
func (sd *SignedData) Serialize() []byte {
	_, digestOID := sd.hash.CryptoHash()
	digestAlg := pkix.AlgorithmIdentifier{Algorithm: digestOID, Parameters: asn1.NullRawValue}

	var certsDER []byte
	for _, c := range sd.certificates {
		certsDER = append(certsDER, c.Serialize()...)
	}
	certificatesField := asn1.RawValue{}
	if len(certsDER) > 0 {
		certificatesField = asn1.RawValue{FullBytes: der.Item{Class: der.ClassContextSpecific, Tag: 0, Constructed: true, Contents: certsDER}.FullBytes()}
	}

	eContent := asn1.RawValue{FullBytes: der.Item{Class: der.ClassContextSpecific, Tag: 0, Constructed: true, Contents: der.NewOctetString(sd.plaintext).FullBytes()}.FullBytes()}

	sdValue := signedDataASN1{
		Version:          1,
		DigestAlgorithms: []pkix.AlgorithmIdentifier{digestAlg},
		EncapContentInfo: encapsulatedContentInfo{EContentType: oid.Data, EContent: eContent},
		Certificates:     certificatesField,
		SignerInfos: []signerInfo{{
			Version:            1,
			SID:                sd.signerSID,
			DigestAlgorithm:    digestAlg,
			SignatureAlgorithm: rsapss.Parameters(sd.hash),
			Signature:          sd.signature,
		}},
	}
	sdDER, err := asn1.Marshal(sdValue)
	if err != nil {
		panic(err)
	}

	outer := contentInfo{
		ContentType: oid.SignedData,
		Content:     asn1.RawValue{FullBytes: der.Item{Class: der.ClassContextSpecific, Tag: 0, Constructed: true, Contents: sdDER}.FullBytes()},
	}
	out, err := asn1.Marshal(outer)
	if err != nil {
		panic(err)
	}
	return out
}

// Deserialize parses a ContentInfo wrapping a SignedData value.
func Deserialize(data []byte) (*SignedData, error) {
	var outer contentInfo
	rest, err := asn1.Unmarshal(data, &outer)
	if err != nil || len(rest) != 0 {
		return nil, ramferrors.NewCMSError(err, "Value is not DER-encoded")
	}
	if !outer.ContentType.Equal(oid.SignedData) || len(outer.Content.FullBytes) == 0 {
		return nil, ramferrors.NewCMSError(nil, "SignedData value is not wrapped in ContentInfo")
	}

	var sdValue signedDataASN1
	rest, err = asn1.Unmarshal(outer.Content.FullBytes, &sdValue)
	if err != nil || len(rest) != 0 {
		return nil, ramferrors.NewCMSError(err, "ContentInfo wraps invalid SignedData value")
	}
	if len(sdValue.SignerInfos) != 1 {
		return nil, ramferrors.NewCMSError(nil, "ContentInfo wraps invalid SignedData value")
	}

	var plaintext []byte
	if len(sdValue.EncapContentInfo.EContent.FullBytes) > 0 {
		if _, err := asn1.Unmarshal(sdValue.EncapContentInfo.EContent.FullBytes, &plaintext); err != nil {
			return nil, ramferrors.NewCMSError(err, "ContentInfo wraps invalid SignedData value")
		}
	}

	var certs []*certificate.Certificate
	if len(sdValue.Certificates.Bytes) > 0 {
		items, err := der.ParseConcatenatedElements(sdValue.Certificates.Bytes)
		if err != nil {
			return nil, ramferrors.NewCMSError(err, "ContentInfo wraps invalid SignedData value")
		}
		for _, it := range items {
			cert, err := certificate.Deserialize(it.FullBytes())
			if err != nil {
				return nil, ramferrors.NewCMSError(err, "ContentInfo wraps invalid SignedData value")
			}
			certs = append(certs, cert)
		}
	}

	si := sdValue.SignerInfos[0]
	h, err := rsapss.HashAlgorithmForOID(si.DigestAlgorithm.Algorithm)
	if err != nil {
		return nil, ramferrors.NewCMSError(err, "ContentInfo wraps invalid SignedData value")
	}

	return &SignedData{
		plaintext:    plaintext,
		hash:         h,
		signature:    si.Signature,
		signerSID:    si.SID,
		certificates: certs,
	}, nil
}

// Verify validates the single SignerInfo's signature over the attached
// content using the attached signer certificate. When expectedPlaintext is
// non-nil, the attached content must match it exactly. It returns the
// signer certificate and the full attached certificate set.
func (sd *SignedData) Verify(expectedPlaintext []byte, m *metrics.Metrics) (*certificate.Certificate, []*certificate.Certificate, error) {
	if len(sd.certificates) == 0 {
		return nil, nil, ramferrors.NewCMSError(nil, "SignedData does not have a signer info")
	}

	var signer *certificate.Certificate
	for _, c := range sd.certificates {
		if bytes.Equal(c.IssuerDER(), sd.signerSID.Issuer.FullBytes) && c.SerialNumber().Cmp(sd.signerSID.SerialNumber) == 0 {
			signer = c
			break
		}
	}
	if signer == nil {
		return nil, nil, ramferrors.NewCMSError(nil, "SignedData does not have a signer info")
	}

	if err := rsapss.Verify(signer.PublicKey(), sd.hash, sd.plaintext, sd.signature); err != nil {
		if m != nil {
			m.SignatureErrors.WithLabelValues("verify").Inc()
		}
		return nil, nil, ramferrors.NewCMSError(err, "SignedData signature is invalid")
	}

	if expectedPlaintext != nil && !bytes.Equal(expectedPlaintext, sd.plaintext) {
		return nil, nil, ramferrors.NewCMSError(nil, "Plaintext does not match expected plaintext")
	}

	return signer, sd.certificates, nil
}

// Plaintext returns the SignedData's attached content.
func (sd *SignedData) Plaintext() []byte { return append([]byte(nil), sd.plaintext...) }
