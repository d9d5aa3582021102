// Package oid centralizes the ASN.1 object identifiers used by the
// certificate and cms packages, grounded on the OID tables in
// other_examples' smallstep/pkcs7 and digitorus/pkcs7 vendor copies.
package oid

import "encoding/asn1"

// PKCS#7 / CMS content types (RFC 5652).
var (
	Data         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	SignedData   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	EnvelopedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 3}
)

// Signed attribute OIDs.
var (
	AttributeContentType   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	AttributeMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
)

// Digest algorithms.
var (
	SHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	SHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	SHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)

// RSASSA-PSS and RSAES-OAEP (RFC 4055/8017) and the MGF1 mask generation function.
var (
	RSASSAPSS = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}
	RSAESOAEP = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 7}
	MGF1      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 8}
	RSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
)

// AES-GCM content-encryption algorithms (RFC 5084).
var (
	AES128GCM = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 6}
	AES192GCM = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 26}
	AES256GCM = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 46}
)

// X.509 extension OIDs (RFC 5280).
var (
	BasicConstraints       = asn1.ObjectIdentifier{2, 5, 29, 19}
	SubjectKeyIdentifier   = asn1.ObjectIdentifier{2, 5, 29, 14}
	AuthorityKeyIdentifier = asn1.ObjectIdentifier{2, 5, 29, 35}
)

// CommonName is the attribute type used in the single-RDN subject DN (§4.3).
var CommonName = asn1.ObjectIdentifier{2, 5, 4, 3}

// NameForAESGCM maps an AES key size in bits to its AES-GCM OID, returning
// ok=false for anything outside the three key sizes this module supports.
func NameForAESGCM(keyBits int) (asn1.ObjectIdentifier, bool) {
	switch keyBits {
	case 128:
		return AES128GCM, true
	case 192:
		return AES192GCM, true
	case 256:
		return AES256GCM, true
	default:
		return nil, false
	}
}
