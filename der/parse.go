package der

import (
	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/relaycorp/ramf-go/ramferrors"
)

func errNotDER(detail string) error {
	return ramferrors.NewASN1Error(nil, detail)
}

// classAndTag splits a cryptobyte asn1.Tag into the (class, tag number,
// constructed) triple Item uses. Only the universal and context-specific
// classes are distinguished; this module never produces or consumes
// application- or private-class values.
func classAndTag(t casn1.Tag) (class int, tagNum int, constructed bool) {
	constructed = t&0x20 != 0
	if t&0x80 != 0 {
		class = ClassContextSpecific
	} else {
		class = ClassUniversal
	}
	tagNum = int(t) & 0x1f
	return
}

// parseSingle parses data as exactly one DER TLV, failing if there are
// leftover bytes.
func parseSingle(data []byte) (Item, error) {
	input := cryptobyte.String(data)
	var contents cryptobyte.String
	var tag casn1.Tag
	if !input.ReadAnyASN1(&contents, &tag) {
		return Item{}, errNotDER("Value is not DER-encoded")
	}
	if !input.Empty() {
		return Item{}, errNotDER("Value is not DER-encoded")
	}
	class, tagNum, constructed := classAndTag(tag)
	return Item{Class: class, Tag: tagNum, Constructed: constructed, Contents: []byte(contents)}, nil
}
