package der

import (
	"time"

	"github.com/relaycorp/ramf-go/ramferrors"
)

const dateTimeLayout = "20060102150405"

// NewDateTime builds an ASN.1 DATE-TIME item (X.680 §38) from t, truncating
// to UTC and dropping sub-second precision.
func NewDateTime(t time.Time) Item {
	return Item{Class: ClassUniversal, Tag: TagDateTime, Contents: []byte(t.UTC().Truncate(time.Second).Format(dateTimeLayout))}
}

// GetDateTime reinterprets an implicitly tagged item's contents as an
// ASN.1 DATE-TIME value. It rejects anything shaped like a GeneralizedTime
// (a trailing "Z", fractional seconds, or a non-digit byte), since the two
// types are easy to confuse but are not interchangeable here.
func GetDateTime(it Item) (time.Time, error) {
	s := string(it.Contents)
	if len(s) != len(dateTimeLayout) {
		return time.Time{}, ramferrors.NewRAMFError(nil, "Creation time should be an ASN.1 DATE-TIME value")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, ramferrors.NewRAMFError(nil, "Creation time should be an ASN.1 DATE-TIME value")
		}
	}
	t, err := time.ParseInLocation(dateTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ramferrors.NewRAMFError(err, "Creation time should be an ASN.1 DATE-TIME value")
	}
	return t, nil
}
