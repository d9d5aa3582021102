package der

import (
	encodingasn1 "encoding/asn1"

	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/relaycorp/ramf-go/ramferrors"
)

// SerializeSequence returns the DER encoding of a SEQUENCE whose elements
// are the given items. When explicitTagging is true the items are used
// unmodified, each keeping its own tag; when false, each item is retagged
// with an implicit, positional context tag ([0], [1], [2], ...) — this is
// how the RAMF field set in the ramf package is built.
func SerializeSequence(items []Item, explicitTagging bool) []byte {
	var b cryptobyte.Builder
	b.AddASN1(casn1.SEQUENCE, func(child *cryptobyte.Builder) {
		for i, it := range items {
			if explicitTagging {
				child.AddBytes(it.FullBytes())
			} else {
				tagged := it.withImplicitTag(i)
				child.AddBytes(tagged.FullBytes())
			}
		}
	})
	out, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	return out
}

// DeserializeHeterogeneousSequence parses data as a DER SEQUENCE and returns
// its direct children as Items, preserving whatever tag (implicit
// context-specific, or the element's own universal tag) each one carries.
func DeserializeHeterogeneousSequence(data []byte) ([]Item, error) {
	if len(data) == 0 {
		return nil, ramferrors.NewASN1Error(nil, "Value is empty")
	}

	input := cryptobyte.String(data)
	var body cryptobyte.String
	var tag casn1.Tag
	if !input.ReadAnyASN1(&body, &tag) {
		return nil, ramferrors.NewASN1Error(nil, "Value is not DER-encoded")
	}
	if !input.Empty() {
		return nil, ramferrors.NewASN1Error(nil, "Value is not DER-encoded")
	}
	class, tagNum, constructed := classAndTag(tag)
	if class != ClassUniversal || tagNum != 16 || !constructed {
		return nil, ramferrors.NewASN1Error(nil, "Value is not an ASN.1 sequence")
	}

	return ParseConcatenatedElements([]byte(body))
}

// ParseConcatenatedElements parses data as a flat run of concatenated DER
// TLVs with no enclosing tag, returning each as an Item. This is what
// DeserializeHeterogeneousSequence applies to a SEQUENCE's content octets;
// the certificate package also uses it directly on a SET's content octets
// when walking a relative distinguished name, since the element-walking
// logic doesn't care what the enclosing tag was.
func ParseConcatenatedElements(data []byte) ([]Item, error) {
	body := cryptobyte.String(data)
	var items []Item
	for !body.Empty() {
		var childContents cryptobyte.String
		var childTag casn1.Tag
		if !body.ReadAnyASN1(&childContents, &childTag) {
			return nil, ramferrors.NewASN1Error(nil, "Value is not DER-encoded")
		}
		cClass, cTagNum, cConstructed := classAndTag(childTag)
		items = append(items, Item{Class: cClass, Tag: cTagNum, Constructed: cConstructed, Contents: []byte(childContents)})
	}
	return items, nil
}

// Decoder decodes the contents of a single Item into a T, returning an
// error if the item's tag or contents don't match what T expects.
type Decoder[T any] func(Item) (T, error)

// DeserializeHomogeneousSequence parses data as a DER SEQUENCE and decodes
// every child with decode, failing if any child does not decode as a T.
func DeserializeHomogeneousSequence[T any](data []byte, decode Decoder[T]) ([]T, error) {
	items, err := DeserializeHeterogeneousSequence(data)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		v, err := decode(it)
		if err != nil {
			var zero T
			return nil, ramferrors.NewASN1Error(err, "Sequence contains an item of an unexpected type (%T)", zero)
		}
		out = append(out, v)
	}
	return out, nil
}

// GetVisibleString reinterprets an implicitly tagged item's contents as an
// ASN.1 VisibleString, validating the character range.
func GetVisibleString(it Item) (string, error) {
	s := string(it.Contents)
	if !IsVisibleString(s) {
		return "", ramferrors.NewASN1Error(nil, "Value is not a VisibleString")
	}
	return s, nil
}

// GetOctetString reinterprets an implicitly tagged item's contents as an
// ASN.1 OCTET STRING. Since OCTET STRING contents are the raw bytes
// regardless of the wrapping tag, this never fails on well-formed input.
func GetOctetString(it Item) ([]byte, error) {
	return it.Contents, nil
}

// GetOID reinterprets an implicitly tagged item's contents as an ASN.1
// OBJECT IDENTIFIER.
func GetOID(it Item) (ObjectIdentifier, error) {
	full := Item{Class: ClassUniversal, Tag: int(casn1.OBJECT_IDENTIFIER), Contents: it.Contents}.FullBytes()
	input := cryptobyte.String(full)
	var raw encodingasn1.ObjectIdentifier
	if !input.ReadASN1ObjectIdentifier(&raw) {
		return nil, ramferrors.NewASN1Error(nil, "Value is not an OBJECT IDENTIFIER")
	}
	return ObjectIdentifier(raw), nil
}

// ObjectIdentifier mirrors encoding/asn1.ObjectIdentifier's shape as a type
// of this package; the certificate and cms packages convert freely between
// the two.
type ObjectIdentifier []int

// Equal reports whether oid and other name the same object identifier.
func (oid ObjectIdentifier) Equal(other ObjectIdentifier) bool {
	if len(oid) != len(other) {
		return false
	}
	for i := range oid {
		if oid[i] != other[i] {
			return false
		}
	}
	return true
}
