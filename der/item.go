package der

import (
	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Item is a single encoded ASN.1 value, either produced by one of the
// constructors below (NewVisibleString, NewOctetString, ...) for use with
// SerializeSequence, or returned as an element of a sequence parsed by
// DeserializeHeterogeneousSequence.
type Item struct {
	Class       int // 0 = universal, 2 = context-specific (the only classes this module uses)
	Tag         int
	Constructed bool
	// Contents is the value's content octets, excluding its own identifier
	// and length octets.
	Contents []byte
}

func (it Item) cryptobyteTag() casn1.Tag {
	tag := casn1.Tag(it.Tag)
	if it.Class == ClassContextSpecific {
		tag = tag.ContextSpecific()
	}
	if it.Constructed {
		tag = tag.Constructed()
	}
	return tag
}

// FullBytes renders the item's own DER encoding (identifier + length + contents).
func (it Item) FullBytes() []byte {
	var b cryptobyte.Builder
	b.AddASN1(it.cryptobyteTag(), func(child *cryptobyte.Builder) {
		child.AddBytes(it.Contents)
	})
	out, err := b.Bytes()
	if err != nil {
		// Only possible if Contents overflows cryptobyte's length field,
		// far beyond any bound this module enforces (payload ≤ 8 MiB).
		panic(err)
	}
	return out
}

// withImplicitTag returns a copy of it retagged as context-specific tag n,
// preserving the constructed bit and contents — this is what
// SerializeSequence(explicitTagging=false) does to each element.
func (it Item) withImplicitTag(n int) Item {
	return Item{Class: ClassContextSpecific, Tag: n, Constructed: it.Constructed, Contents: it.Contents}
}

// NewVisibleString builds an ASN.1 VisibleString item from s. The caller is
// responsible for checking s is within the VisibleString character range
// (see IsVisibleString) before calling this for fields where that matters.
func NewVisibleString(s string) Item {
	return Item{Class: ClassUniversal, Tag: TagVisibleString, Contents: []byte(s)}
}

// NewOctetString builds an ASN.1 OCTET STRING item from b.
func NewOctetString(b []byte) Item {
	return Item{Class: ClassUniversal, Tag: int(casn1.OCTET_STRING), Contents: b}
}

// NewInteger builds an ASN.1 INTEGER item from a non-negative value fitting
// in an int64. Relaynet's integer fields (ttlSeconds) never need more range
// than that.
func NewInteger(v int64) Item {
	var b cryptobyte.Builder
	b.AddASN1Int64(v)
	full, err := b.Bytes()
	if err != nil {
		panic(err)
	}
	it, err := parseSingle(full)
	if err != nil {
		panic(err)
	}
	return it
}

// GetInteger reinterprets an implicitly tagged item's contents as an ASN.1
// INTEGER, returning its value. It only supports values fitting in an
// int64, which covers every integer field this module uses.
func GetInteger(it Item) (int64, error) {
	full := Item{Class: ClassUniversal, Tag: int(casn1.INTEGER), Contents: it.Contents}.FullBytes()
	input := cryptobyte.String(full)
	var v int64
	if !input.ReadASN1Integer(&v) {
		return 0, errNotDER("Value is not an ASN.1 INTEGER")
	}
	return v, nil
}

// IsVisibleString reports whether every byte of s is within the ASN.1
// VisibleString range: printable ASCII, 0x20 through 0x7E.
func IsVisibleString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
