package certificate

import (
	"encoding/asn1"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/text/encoding/unicode"

	"github.com/relaycorp/ramf-go/der"
	"github.com/relaycorp/ramf-go/oid"
	"github.com/relaycorp/ramf-go/ramferrors"
)

const tagBMPString = 30
const tagSET = 17

var bmpEncoding = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// encodeBMPString transforms s to the UCS-2/UTF-16BE octets an ASN.1
// BMPString carries, per spec.md §4.3's requirement that the subject
// CommonName is BMPString-encoded rather than UTF8String or PrintableString.
func encodeBMPString(s string) ([]byte, error) {
	out, err := bmpEncoding.NewEncoder().String(s)
	if err != nil {
		return nil, ramferrors.NewCertificateError(err, "common name cannot be BMPString-encoded")
	}
	return []byte(out), nil
}

func decodeBMPString(b []byte) (string, error) {
	out, err := bmpEncoding.NewDecoder().Bytes(b)
	if err != nil {
		return "", ramferrors.NewCertificateError(err, "subject common name is not a valid BMPString")
	}
	return string(out), nil
}

// oidContents renders the content octets (no identifier/length header) of
// an ASN.1 OBJECT IDENTIFIER.
func oidContents(o asn1.ObjectIdentifier) []byte {
	var b cryptobyte.Builder
	b.AddASN1ObjectIdentifier(o)
	full, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	items, err := der.ParseConcatenatedElements(full)
	if err != nil {
		panic(err)
	}
	return items[0].Contents
}

// buildSubjectDN renders a Name (RDNSequence) containing exactly one RDN,
// whose only attribute is CommonName encoded as BMPString — the only DN
// shape spec.md §3 allows for a Certificate's subject.
func buildSubjectDN(commonName string) ([]byte, error) {
	cnBytes, err := encodeBMPString(commonName)
	if err != nil {
		return nil, err
	}
	cnValue := der.Item{Class: der.ClassUniversal, Tag: tagBMPString, Contents: cnBytes}
	typeItem := der.Item{Class: der.ClassUniversal, Tag: 6, Contents: oidContents(oid.CommonName)}

	atv := der.SerializeSequence([]der.Item{typeItem, cnValue}, true)
	rdn := der.Item{Class: der.ClassUniversal, Tag: tagSET, Constructed: true, Contents: atv}.FullBytes()

	return der.Item{Class: der.ClassUniversal, Tag: 16, Constructed: true, Contents: rdn}.FullBytes(), nil
}

// commonNameFromDN extracts the CommonName from a DN built by buildSubjectDN,
// failing if the DN isn't shaped as exactly one RDN with exactly one
// CommonName/BMPString attribute.
func commonNameFromDN(dn []byte) (string, error) {
	rdns, err := der.DeserializeHeterogeneousSequence(dn)
	if err != nil || len(rdns) != 1 {
		return "", ramferrors.NewCertificateError(err, "Subject should have a Common Name")
	}
	atvs, err := der.ParseConcatenatedElements(rdns[0].Contents)
	if err != nil || len(atvs) != 1 {
		return "", ramferrors.NewCertificateError(err, "Subject should have a Common Name")
	}
	fields, err := der.ParseConcatenatedElements(atvs[0].Contents)
	if err != nil || len(fields) != 2 {
		return "", ramferrors.NewCertificateError(err, "Subject should have a Common Name")
	}
	typeOID, err := der.GetOID(fields[0])
	if err != nil || !typeOID.Equal(der.ObjectIdentifier(oid.CommonName)) {
		return "", ramferrors.NewCertificateError(err, "Subject should have a Common Name")
	}
	if fields[1].Tag != tagBMPString {
		return "", ramferrors.NewCertificateError(nil, "Subject common name should be BMPString-encoded")
	}
	return decodeBMPString(fields[1].Contents)
}
