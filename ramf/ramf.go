package ramf

import (
	"context"
	"crypto/rsa"

	"github.com/jmhodges/clock"

	"github.com/relaycorp/ramf-go/certificate"
	"github.com/relaycorp/ramf-go/cms"
	"github.com/relaycorp/ramf-go/metrics"
	"github.com/relaycorp/ramf-go/ramferrors"
	"github.com/relaycorp/ramf-go/rsapss"
)

// Message binds a field set to the sender certificate that signed it.
type Message struct {
	Fields            FieldSet
	SenderCertificate *certificate.Certificate
}

// Serialize renders fs as a RAMF message of the given format, signed by
// senderPrivateKey/senderCertificate, per spec.md §4.8. clk supplies "now"
// when fs.CreationTime is zero, defaulting to the real wall clock when nil.
func Serialize(ctx context.Context, fs FieldSet, format Format, senderPrivateKey *rsa.PrivateKey, senderCertificate *certificate.Certificate, hashingAlgorithm rsapss.HashAlgorithm, clk clock.Clock, m *metrics.Metrics) ([]byte, error) {
	normalized := fs.normalize(clk)
	if err := normalized.validate(); err != nil {
		return nil, err
	}

	envelope := make([]byte, 0, 10+len(normalized.Payload)+64)
	envelope = append(envelope, Magic[:]...)
	envelope = append(envelope, format.Type, format.Version)
	envelope = append(envelope, normalized.toDER()...)

	signedData, err := cms.Sign(ctx, envelope, senderPrivateKey, senderCertificate, nil, hashingAlgorithm, m)
	if err != nil {
		return nil, ramferrors.NewRAMFError(err, "failed to sign message")
	}
	return signedData.Serialize(), nil
}

// Deserialize parses data as a RAMF message, verifying its signature and
// checking its format signature against expectedFormat, per spec.md §4.8.
func Deserialize(data []byte, expectedFormat Format, m *metrics.Metrics) (*Message, error) {
	signedData, err := cms.Deserialize(data)
	if err != nil {
		return nil, ramferrors.NewRAMFError(err, "Message is not a valid SignedData value")
	}

	senderCertificate, _, err := signedData.Verify(nil, m)
	if err != nil {
		return nil, ramferrors.NewRAMFError(err, "Message signature is invalid")
	}

	envelope := signedData.Plaintext()
	if len(envelope) < 10 {
		return nil, ramferrors.NewRAMFError(nil, "Serialization is too short to contain format signature")
	}
	if [8]byte(envelope[:8]) != Magic {
		return nil, ramferrors.NewRAMFError(nil, "Format signature should start with magic constant 'Relaynet'")
	}
	if envelope[8] != expectedFormat.Type {
		return nil, ramferrors.NewRAMFError(nil, "Message type should be %d (got %d)", expectedFormat.Type, envelope[8])
	}
	if envelope[9] != expectedFormat.Version {
		return nil, ramferrors.NewRAMFError(nil, "Message version should be %d (got %d)", expectedFormat.Version, envelope[9])
	}

	fields, err := fieldSetFromDER(envelope[10:])
	if err != nil {
		return nil, err
	}

	return &Message{Fields: fields, SenderCertificate: senderCertificate}, nil
}
