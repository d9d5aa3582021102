package certificate

import (
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/relaycorp/ramf-go/der"
	"github.com/relaycorp/ramf-go/oid"
	"github.com/relaycorp/ramf-go/ramferrors"
)

// buildExtensions renders the fixed extension profile spec.md §4.3 requires,
// in order: BasicConstraints (critical), AuthorityKeyIdentifier,
// SubjectKeyIdentifier.
func buildExtensions(isCA bool, pathLen int, aki []byte, ski []byte) ([]pkix.Extension, error) {
	bc, err := basicConstraintsValue(isCA, pathLen)
	if err != nil {
		return nil, err
	}
	return []pkix.Extension{
		{Id: oid.BasicConstraints, Critical: true, Value: bc},
		{Id: oid.AuthorityKeyIdentifier, Value: authorityKeyIdentifierValue(aki)},
		{Id: oid.SubjectKeyIdentifier, Value: subjectKeyIdentifierValue(ski)},
	}, nil
}

type basicConstraints struct {
	isCA    bool
	pathLen int
}

// basicConstraintsValue renders a BasicConstraints SEQUENCE. The cA BOOLEAN
// is DER-omitted when false (its DEFAULT), matching how a genuine CA would
// encode it; pathLenConstraint is included only when isCA is true, since an
// end-entity certificate's BasicConstraints never carries one.
func basicConstraintsValue(isCA bool, pathLen int) ([]byte, error) {
	var content []byte
	if isCA {
		content = append(content, der.Item{Class: der.ClassUniversal, Tag: 1, Contents: []byte{0xFF}}.FullBytes()...)
		content = append(content, der.NewInteger(int64(pathLen)).FullBytes()...)
	}
	return der.Item{Class: der.ClassUniversal, Tag: 16, Constructed: true, Contents: content}.FullBytes(), nil
}

func parseBasicConstraints(value []byte) (basicConstraints, error) {
	items, err := der.DeserializeHeterogeneousSequence(value)
	if err != nil {
		return basicConstraints{}, ramferrors.NewCertificateError(err, "Issuer certificate should have basic constraints extension")
	}
	var bc basicConstraints
	for _, it := range items {
		switch it.Tag {
		case 1: // BOOLEAN
			bc.isCA = len(it.Contents) == 1 && it.Contents[0] != 0
		case 2: // INTEGER
			n, err := der.GetInteger(it)
			if err != nil {
				return basicConstraints{}, ramferrors.NewCertificateError(err, "Issuer certificate should have basic constraints extension")
			}
			bc.pathLen = int(n)
		}
	}
	return bc, nil
}

// authorityKeyIdentifierValue renders an AuthorityKeyIdentifier SEQUENCE
// carrying only the [0] IMPLICIT keyIdentifier field (RFC 5280 §4.2.1.1);
// this module never populates authorityCertIssuer/authorityCertSerialNumber.
func authorityKeyIdentifierValue(keyID []byte) []byte {
	field := der.Item{Class: der.ClassContextSpecific, Tag: 0, Contents: keyID}.FullBytes()
	return der.Item{Class: der.ClassUniversal, Tag: 16, Constructed: true, Contents: field}.FullBytes()
}

func parseAuthorityKeyIdentifier(value []byte) ([]byte, error) {
	items, err := der.DeserializeHeterogeneousSequence(value)
	if err != nil {
		return nil, ramferrors.NewCertificateError(err, "Issuer certificate should have authority key identifier")
	}
	for _, it := range items {
		if it.Class == der.ClassContextSpecific && it.Tag == 0 {
			return it.Contents, nil
		}
	}
	return nil, ramferrors.NewCertificateError(nil, "Issuer certificate should have authority key identifier")
}

// subjectKeyIdentifierValue renders a SubjectKeyIdentifier, which unlike
// AuthorityKeyIdentifier is itself the KeyIdentifier OCTET STRING — no
// enclosing SEQUENCE.
func subjectKeyIdentifierValue(keyID []byte) []byte {
	return der.NewOctetString(keyID).FullBytes()
}

func parseSubjectKeyIdentifier(value []byte) ([]byte, error) {
	var raw asn1.RawValue
	rest, err := asn1.Unmarshal(value, &raw)
	if err != nil || len(rest) != 0 || raw.Class != asn1.ClassUniversal || raw.Tag != asn1.TagOctetString {
		return nil, ramferrors.NewCertificateError(err, "certificate should have subject key identifier")
	}
	return raw.Bytes, nil
}
