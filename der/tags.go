package der

import "encoding/asn1"

// Universal tag numbers this package knows how to build and read. Most are
// already named in encoding/asn1; VisibleString and DATE-TIME are not, so
// they're named here instead.
const (
	TagVisibleString = 26
	// TagDateTime is the universal tag for the ASN.1 2008 DATE-TIME type
	// (X.680 §38), canonically encoded as the 14 ASCII digits YYYYMMDDHHMMSS
	// with no separators and no trailing "Z" — unlike GeneralizedTime (tag 24),
	// which always carries one.
	TagDateTime = 33
)

// ClassContextSpecific mirrors asn1.ClassContextSpecific for readability at
// call sites that don't otherwise import encoding/asn1.
const ClassContextSpecific = asn1.ClassContextSpecific
const ClassUniversal = asn1.ClassUniversal
