// Package rsapss builds and parses the RFC 4055 RSASSA-PSS-params
// AlgorithmIdentifier, and performs PSS-MGF1 signing/verification, shared by
// the certificate and cms packages (both sign under RSA-PSS per spec.md §4.3/§4.6).
package rsapss

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	"github.com/relaycorp/ramf-go/der"
	"github.com/relaycorp/ramf-go/oid"
)

// HashAlgorithm identifies one of the three digest algorithms RAMF's CMS
// layer supports (spec.md §3).
type HashAlgorithm int

const (
	SHA256 HashAlgorithm = iota
	SHA384
	SHA512
)

// CryptoHash returns the crypto.Hash and digest OID for h.
func (h HashAlgorithm) CryptoHash() (crypto.Hash, asn1.ObjectIdentifier) {
	switch h {
	case SHA384:
		return crypto.SHA384, oid.SHA384
	case SHA512:
		return crypto.SHA512, oid.SHA512
	default:
		return crypto.SHA256, oid.SHA256
	}
}

func algorithmIdentifierBytes(o asn1.ObjectIdentifier, params []byte) []byte {
	oidItem := der.Item{Class: der.ClassUniversal, Tag: 6, Contents: oidContents(o)}
	content := oidItem.FullBytes()
	if params == nil {
		nullItem := der.Item{Class: der.ClassUniversal, Tag: 5}
		content = append(content, nullItem.FullBytes()...)
	} else {
		content = append(content, params...)
	}
	return der.Item{Class: der.ClassUniversal, Tag: 16, Constructed: true, Contents: content}.FullBytes()
}

// Parameters renders the RFC 4055 RSASSA-PSS-params SEQUENCE for h, using
// MGF1 with the same hash and a salt length equal to the hash's output size
// — the conventional pairing, and the one Go's own x509.SHA256WithRSAPSS
// family produces.
func Parameters(h HashAlgorithm) pkix.AlgorithmIdentifier {
	cryptoHash, hashOID := h.CryptoHash()
	hashAlgID := algorithmIdentifierBytes(hashOID, nil)
	mgfAlgID := algorithmIdentifierBytes(oid.MGF1, hashAlgID)

	hashField := der.Item{Class: der.ClassContextSpecific, Tag: 0, Constructed: true, Contents: hashAlgID}.FullBytes()
	mgfField := der.Item{Class: der.ClassContextSpecific, Tag: 1, Constructed: true, Contents: mgfAlgID}.FullBytes()
	saltField := der.Item{Class: der.ClassContextSpecific, Tag: 2, Constructed: true, Contents: der.NewInteger(int64(cryptoHash.Size())).FullBytes()}.FullBytes()
	trailerField := der.Item{Class: der.ClassContextSpecific, Tag: 3, Constructed: true, Contents: der.NewInteger(1).FullBytes()}.FullBytes()

	var params []byte
	params = append(params, hashField...)
	params = append(params, mgfField...)
	params = append(params, saltField...)
	params = append(params, trailerField...)

	return pkix.AlgorithmIdentifier{
		Algorithm:  oid.RSASSAPSS,
		Parameters: asn1.RawValue{FullBytes: der.Item{Class: der.ClassUniversal, Tag: 16, Constructed: true, Contents: params}.FullBytes()},
	}
}

func oidContents(o asn1.ObjectIdentifier) []byte {
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

// Sign produces an RSA-PSS-MGF1 signature of message under priv, using h as
// both the digest algorithm and the MGF1/salt-length parameters.
func Sign(priv *rsa.PrivateKey, h HashAlgorithm, message []byte) ([]byte, error) {
	cryptoHash, _ := h.CryptoHash()
	digest := hashSum(cryptoHash, message)
	return rsa.SignPSS(rand.Reader, priv, cryptoHash, digest, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: cryptoHash})
}

// Verify checks an RSA-PSS-MGF1 signature of message under pub.
func Verify(pub *rsa.PublicKey, h HashAlgorithm, message []byte, signature []byte) error {
	cryptoHash, _ := h.CryptoHash()
	digest := hashSum(cryptoHash, message)
	return rsa.VerifyPSS(pub, cryptoHash, digest, signature, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: cryptoHash})
}

func hashSum(h crypto.Hash, message []byte) []byte {
	hasher := h.New()
	hasher.Write(message)
	return hasher.Sum(nil)
}

// HashAlgorithmForOID maps a digest OID back to a HashAlgorithm.
func HashAlgorithmForOID(o asn1.ObjectIdentifier) (HashAlgorithm, error) {
	switch {
	case o.Equal(oid.SHA256):
		return SHA256, nil
	case o.Equal(oid.SHA384):
		return SHA384, nil
	case o.Equal(oid.SHA512):
		return SHA512, nil
	default:
		return 0, fmt.Errorf("unsupported digest algorithm %v", o)
	}
}
