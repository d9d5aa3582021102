// Package clientregistration implements the DER container a server hands a
// client once it has issued the client a certificate (spec.md §6): the
// newly issued client certificate alongside the issuing server's own
// certificate, so the client can anchor a certification path without a
// separate round trip.
package clientregistration

import (
	"github.com/relaycorp/ramf-go/certificate"
	"github.com/relaycorp/ramf-go/der"
	"github.com/relaycorp/ramf-go/ramferrors"
)

// ClientRegistration pairs a freshly issued client certificate with the
// server certificate that issued it.
type ClientRegistration struct {
	ClientCertificate *certificate.Certificate
	ServerCertificate *certificate.Certificate
}

// Serialize renders cr as a DER SEQUENCE of two implicitly tagged OCTET
// STRING items: [0] the client certificate, [1] the server certificate.
func (cr ClientRegistration) Serialize() []byte {
	items := []der.Item{
		der.NewOctetString(cr.ClientCertificate.Serialize()),
		der.NewOctetString(cr.ServerCertificate.Serialize()),
	}
	return der.SerializeSequence(items, false)
}

// Deserialize parses data as a ClientRegistration.
func Deserialize(data []byte) (*ClientRegistration, error) {
	items, err := der.DeserializeHeterogeneousSequence(data)
	if err != nil {
		return nil, ramferrors.NewInvalidMessageError(err, "Client registration is not a DER sequence")
	}
	if len(items) < 2 {
		return nil, ramferrors.NewInvalidMessageError(nil, "Client registration sequence should have at least two items (got %d)", len(items))
	}

	clientCertDER, err := der.GetOctetString(items[0])
	if err != nil {
		return nil, ramferrors.NewInvalidMessageError(err, "Client registration contains invalid client certificate")
	}
	clientCert, err := certificate.Deserialize(clientCertDER)
	if err != nil {
		return nil, ramferrors.NewInvalidMessageError(err, "Client registration contains invalid client certificate")
	}

	serverCertDER, err := der.GetOctetString(items[1])
	if err != nil {
		return nil, ramferrors.NewInvalidMessageError(err, "Client registration contains invalid server certificate")
	}
	serverCert, err := certificate.Deserialize(serverCertDER)
	if err != nil {
		return nil, ramferrors.NewInvalidMessageError(err, "Client registration contains invalid server certificate")
	}

	return &ClientRegistration{ClientCertificate: clientCert, ServerCertificate: serverCert}, nil
}
