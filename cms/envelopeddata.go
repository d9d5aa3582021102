package cms

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509/pkix"
	"encoding/asn1"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaycorp/ramf-go/certificate"
	"github.com/relaycorp/ramf-go/der"
	"github.com/relaycorp/ramf-go/metrics"
	"github.com/relaycorp/ramf-go/oid"
	"github.com/relaycorp/ramf-go/ramferrors"
)

// SymmetricCipher identifies a content-encryption key size (spec.md §3).
type SymmetricCipher int

const (
	AES128GCM SymmetricCipher = iota
	AES192GCM
	AES256GCM
)

func (c SymmetricCipher) keyBits() int {
	switch c {
	case AES192GCM:
		return 192
	case AES256GCM:
		return 256
	default:
		return 128
	}
}

const gcmNonceSize = 12

type gcmParameters struct {
	Nonce  []byte
	ICVLen int
}

type envelopedDataASN1 struct {
	Version              int
	RecipientInfos       []keyTransRecipientInfo `asn1:"set"`
	EncryptedContentInfo encryptedContentInfo
}

type keyTransRecipientInfo struct {
	Version                int
	RID                    issuerAndSerialNumber
	KeyEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedKey           []byte
}

type encryptedContentInfo struct {
	ContentType                asn1.ObjectIdentifier
	ContentEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedContent           asn1.RawValue `asn1:"optional,tag:0"`
}

// EnvelopedData is a CMS EnvelopedData value with a single
// KeyTransRecipientInfo (spec.md §4.7).
type EnvelopedData struct {
	cipher           SymmetricCipher
	nonce            []byte
	ciphertext       []byte // includes the GCM tag
	recipientRID     issuerAndSerialNumber
	encryptedCEK     []byte
}

// Encrypt produces an EnvelopedData for recipientCertificate: a fresh
// content-encryption key and 12-byte IV are generated, the plaintext is
// sealed with AES-GCM under cipherKind (default AES128GCM), and the CEK is
// wrapped under the recipient's RSA public key using RSA-OAEP-SHA256.
func Encrypt(ctx context.Context, plaintext []byte, recipientCertificate *certificate.Certificate, cipherKind SymmetricCipher, m *metrics.Metrics) (*EnvelopedData, error) {
	_, span := tracer.Start(ctx, "encrypting content", trace.WithAttributes(
		attribute.String("cipher", cipherKind.String()),
	))
	defer span.End()

	cek := make([]byte, cipherKind.keyBits()/8)
	if _, err := rand.Read(cek); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, ramferrors.NewCMSError(err, "failed to generate content-encryption key")
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, ramferrors.NewCMSError(err, "failed to generate IV")
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, ramferrors.NewCMSError(err, "failed to initialize AES cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, ramferrors.NewCMSError(err, "failed to initialize AES-GCM")
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	encryptedCEK, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, recipientCertificate.PublicKey(), cek, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, ramferrors.NewCMSError(err, "failed to wrap content-encryption key")
	}

	if m != nil {
		m.EnvelopesProduced.WithLabelValues(cipherKind.String()).Inc()
	}

	return &EnvelopedData{
		cipher:     cipherKind,
		nonce:      nonce,
		ciphertext: ciphertext,
		recipientRID: issuerAndSerialNumber{
			Issuer:       asn1.RawValue{FullBytes: recipientCertificate.IssuerDER()},
			SerialNumber: recipientCertificate.SerialNumber(),
		},
		encryptedCEK: encryptedCEK,
	}, nil
}

// Serialize returns the DER encoding of the ContentInfo wrapping this EnvelopedData.
func (ed *EnvelopedData) Serialize() []byte {
	gcmOID, ok := oid.NameForAESGCM(ed.cipher.keyBits())
	if !ok {
		panic("unsupported AES-GCM key size")
	}
	gcmParams, err := asn1.Marshal(gcmParameters{Nonce: ed.nonce, ICVLen: 16})
	if err != nil {
		panic(err)
	}

	edValue := envelopedDataASN1{
		Version: 0,
		RecipientInfos: []keyTransRecipientInfo{{
			Version:                0,
			RID:                    ed.recipientRID,
			KeyEncryptionAlgorithm: rsaesOAEPParameters(),
			EncryptedKey:           ed.encryptedCEK,
		}},
		EncryptedContentInfo: encryptedContentInfo{
			ContentType:                oid.Data,
			ContentEncryptionAlgorithm: pkix.AlgorithmIdentifier{Algorithm: gcmOID, Parameters: asn1.RawValue{FullBytes: gcmParams}},
			EncryptedContent:           asn1.RawValue{FullBytes: der.Item{Class: der.ClassContextSpecific, Tag: 0, Contents: ed.ciphertext}.FullBytes()},
		},
	}
	edDER, err := asn1.Marshal(edValue)
	if err != nil {
		panic(err)
	}

	outer := contentInfo{
		ContentType: oid.EnvelopedData,
		Content:     asn1.RawValue{FullBytes: der.Item{Class: der.ClassContextSpecific, Tag: 0, Constructed: true, Contents: edDER}.FullBytes()},
	}
	out, err := asn1.Marshal(outer)
	if err != nil {
		panic(err)
	}
	return out
}

// DeserializeEnvelopedData parses a ContentInfo wrapping an EnvelopedData value.
func DeserializeEnvelopedData(data []byte) (*EnvelopedData, error) {
	var outer contentInfo
	rest, err := asn1.Unmarshal(data, &outer)
	if err != nil || len(rest) != 0 {
		return nil, ramferrors.NewCMSError(err, "Value is not DER-encoded")
	}
	if !outer.ContentType.Equal(oid.EnvelopedData) || len(outer.Content.FullBytes) == 0 {
		return nil, ramferrors.NewCMSError(nil, "EnvelopedData value is not wrapped in ContentInfo")
	}

	var edValue envelopedDataASN1
	rest, err = asn1.Unmarshal(outer.Content.FullBytes, &edValue)
	if err != nil || len(rest) != 0 {
		return nil, ramferrors.NewCMSError(err, "ContentInfo wraps invalid EnvelopedData value")
	}
	if len(edValue.RecipientInfos) != 1 {
		return nil, ramferrors.NewCMSError(nil, "ContentInfo wraps invalid EnvelopedData value")
	}

	var params gcmParameters
	if _, err := asn1.Unmarshal(edValue.EncryptedContentInfo.ContentEncryptionAlgorithm.Parameters.FullBytes, &params); err != nil {
		return nil, ramferrors.NewCMSError(err, "ContentInfo wraps invalid EnvelopedData value")
	}

	var ciphertext []byte
	if len(edValue.EncryptedContentInfo.EncryptedContent.Bytes) > 0 {
		ciphertext = edValue.EncryptedContentInfo.EncryptedContent.Bytes
	}

	cipherKind, err := cipherForOID(edValue.EncryptedContentInfo.ContentEncryptionAlgorithm.Algorithm)
	if err != nil {
		return nil, ramferrors.NewCMSError(err, "ContentInfo wraps invalid EnvelopedData value")
	}

	ri := edValue.RecipientInfos[0]
	return &EnvelopedData{
		cipher:       cipherKind,
		nonce:        params.Nonce,
		ciphertext:   ciphertext,
		recipientRID: ri.RID,
		encryptedCEK: ri.EncryptedKey,
	}, nil
}

// Decrypt unwraps the content-encryption key under recipientPrivateKey and
// opens the AES-GCM ciphertext, failing on tag mismatch or a malformed structure.
func (ed *EnvelopedData) Decrypt(recipientPrivateKey *rsa.PrivateKey) ([]byte, error) {
	cek, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, recipientPrivateKey, ed.encryptedCEK, nil)
	if err != nil {
		return nil, ramferrors.NewCMSError(err, "failed to unwrap content-encryption key")
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, ramferrors.NewCMSError(err, "failed to initialize AES cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ramferrors.NewCMSError(err, "failed to initialize AES-GCM")
	}
	plaintext, err := gcm.Open(nil, ed.nonce, ed.ciphertext, nil)
	if err != nil {
		return nil, ramferrors.NewCMSError(err, "failed to decrypt content")
	}
	return plaintext, nil
}

// rsaesOAEPParameters renders the RFC 4055 RSAES-OAEP-params SEQUENCE for
// SHA-256/MGF1-SHA256 with the default (empty) encoding label, the only
// configuration this module produces.
func rsaesOAEPParameters() pkix.AlgorithmIdentifier {
	hashAlgID := algorithmIdentifierBytesSHA256()
	mgfAlgID := mgf1AlgorithmIdentifierBytes(hashAlgID)

	hashField := der.Item{Class: der.ClassContextSpecific, Tag: 0, Constructed: true, Contents: hashAlgID}.FullBytes()
	mgfField := der.Item{Class: der.ClassContextSpecific, Tag: 1, Constructed: true, Contents: mgfAlgID}.FullBytes()

	var params []byte
	params = append(params, hashField...)
	params = append(params, mgfField...)

	return pkix.AlgorithmIdentifier{
		Algorithm:  oid.RSAESOAEP,
		Parameters: asn1.RawValue{FullBytes: der.Item{Class: der.ClassUniversal, Tag: 16, Constructed: true, Contents: params}.FullBytes()},
	}
}

func algorithmIdentifierBytesSHA256() []byte {
	oidItem := der.Item{Class: der.ClassUniversal, Tag: 6, Contents: oidContentsOf(oid.SHA256)}
	content := oidItem.FullBytes()
	content = append(content, der.Item{Class: der.ClassUniversal, Tag: 5}.FullBytes()...)
	return der.Item{Class: der.ClassUniversal, Tag: 16, Constructed: true, Contents: content}.FullBytes()
}

func mgf1AlgorithmIdentifierBytes(hashAlgID []byte) []byte {
	oidItem := der.Item{Class: der.ClassUniversal, Tag: 6, Contents: oidContentsOf(oid.MGF1)}
	content := oidItem.FullBytes()
	content = append(content, hashAlgID...)
	return der.Item{Class: der.ClassUniversal, Tag: 16, Constructed: true, Contents: content}.FullBytes()
}

func oidContentsOf(o asn1.ObjectIdentifier) []byte {
	full, err := asn1.Marshal(o)
	if err != nil {
		panic(err)
	}
	items, err := der.ParseConcatenatedElements(full)
	if err != nil {
		panic(err)
	}
	return items[0].Contents
}

func cipherForOID(o asn1.ObjectIdentifier) (SymmetricCipher, error) {
	switch {
	case o.Equal(oid.AES128GCM):
		return AES128GCM, nil
	case o.Equal(oid.AES192GCM):
		return AES192GCM, nil
	case o.Equal(oid.AES256GCM):
		return AES256GCM, nil
	default:
		return 0, ramferrors.NewCMSError(nil, "unsupported content-encryption algorithm")
	}
}

func (c SymmetricCipher) String() string {
	switch c {
	case AES192GCM:
		return "aes192gcm"
	case AES256GCM:
		return "aes256gcm"
	default:
		return "aes128gcm"
	}
}
