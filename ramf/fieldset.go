// Package ramf implements the RAMF wire codec: the 10-byte format signature,
// the five-field DER envelope, and the CMS SignedData wrapper that carries
// it (spec.md §4.8).
package ramf

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"

	"github.com/relaycorp/ramf-go/der"
	"github.com/relaycorp/ramf-go/ramferrors"
)

// Bounds on the RAMF field set (spec.md §3, §6).
const (
	MaxRecipientAddressLength = 1024
	MaxMessageIDLength        = 64
	MaxTTLSeconds             = 15_552_000
	MaxPayloadLength          = 8 * 1024 * 1024
)

// Magic is the fixed 8-byte ASCII signature every RAMF message starts with.
var Magic = [8]byte{'R', 'e', 'l', 'a', 'y', 'n', 'e', 't'}

// Format identifies a RAMF message subtype by its (type, version) byte pair
// (spec.md §4.9) — Parcel, Cargo, CargoCollectionAuthorization, or a
// collaborator-defined pair.
type Format struct {
	Type    byte
	Version byte
}

// FieldSet is the five-field RAMF payload envelope.
type FieldSet struct {
	RecipientAddress string
	MessageID        string
	CreationTime     time.Time
	TTLSeconds       int
	Payload          []byte
}

// NewFieldSet builds a FieldSet with a fresh random MessageID and a
// CreationTime of the current instant (read from clk, or the real wall clock
// if clk is nil) — the same Clock-threading convention
// certificate.IssueParams.Clock and Certificate.Validate follow.
func NewFieldSet(recipientAddress string, payload []byte, ttlSeconds int, clk clock.Clock) FieldSet {
	if clk == nil {
		clk = clock.New()
	}
	return FieldSet{
		RecipientAddress: recipientAddress,
		MessageID:        uuid.NewString(),
		CreationTime:     clk.Now(),
		TTLSeconds:       ttlSeconds,
		Payload:          payload,
	}
}

// normalize returns a copy of fs with CreationTime converted to UTC and
// truncated to whole seconds, and MessageID defaulted if empty. clk (or the
// real wall clock, if nil) supplies "now" when CreationTime is zero.
func (fs FieldSet) normalize(clk clock.Clock) FieldSet {
	if clk == nil {
		clk = clock.New()
	}
	out := fs
	if out.MessageID == "" {
		out.MessageID = uuid.NewString()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = clk.Now()
	}
	out.CreationTime = out.CreationTime.UTC().Truncate(time.Second)
	return out
}

func (fs FieldSet) validate() error {
	if len(fs.RecipientAddress) > MaxRecipientAddressLength {
		return ramferrors.NewRAMFError(nil, "Recipient address should not span more than %d characters (got %d)", MaxRecipientAddressLength, len(fs.RecipientAddress))
	}
	if !der.IsVisibleString(fs.RecipientAddress) {
		return ramferrors.NewRAMFError(nil, "Recipient address contains characters outside the VisibleString range")
	}
	if len(fs.MessageID) > MaxMessageIDLength {
		return ramferrors.NewRAMFError(nil, "Message id should not span more than %d characters (got %d)", MaxMessageIDLength, len(fs.MessageID))
	}
	if !der.IsVisibleString(fs.MessageID) {
		return ramferrors.NewRAMFError(nil, "Message id contains characters outside the VisibleString range")
	}
	if fs.TTLSeconds < 0 || fs.TTLSeconds > MaxTTLSeconds {
		return ramferrors.NewRAMFError(nil, "TTL should be between 0 and %d (got %d)", MaxTTLSeconds, fs.TTLSeconds)
	}
	if len(fs.Payload) > MaxPayloadLength {
		return ramferrors.NewRAMFError(nil, "Payload should not span more than %d octets (got %d)", MaxPayloadLength, len(fs.Payload))
	}
	return nil
}

func (fs FieldSet) toDER() []byte {
	items := []der.Item{
		der.NewVisibleString(fs.RecipientAddress),
		der.NewVisibleString(fs.MessageID),
		der.NewDateTime(fs.CreationTime),
		der.NewInteger(int64(fs.TTLSeconds)),
		der.NewOctetString(fs.Payload),
	}
	return der.SerializeSequence(items, false)
}

func fieldSetFromDER(data []byte) (FieldSet, error) {
	items, err := der.DeserializeHeterogeneousSequence(data)
	if err != nil {
		switch err.Error() {
		case "Value is not an ASN.1 sequence":
			return FieldSet{}, ramferrors.NewRAMFError(err, "Message fields are not a ASN.1 sequence")
		default:
			return FieldSet{}, ramferrors.NewRAMFError(err, "Message fields are not a DER-encoded value")
		}
	}
	if len(items) != 5 {
		return FieldSet{}, ramferrors.NewRAMFError(nil, "Field sequence should contain 5 items (got %d)", len(items))
	}

	recipientAddress, err := der.GetVisibleString(items[0])
	if err != nil {
		return FieldSet{}, ramferrors.NewRAMFError(err, "Recipient address is malformed")
	}
	messageID, err := der.GetVisibleString(items[1])
	if err != nil {
		return FieldSet{}, ramferrors.NewRAMFError(err, "Message id is malformed")
	}
	creationTime, err := der.GetDateTime(items[2])
	if err != nil {
		return FieldSet{}, err
	}
	ttl, err := der.GetInteger(items[3])
	if err != nil {
		return FieldSet{}, ramferrors.NewRAMFError(err, "TTL is malformed")
	}
	payload, err := der.GetOctetString(items[4])
	if err != nil {
		return FieldSet{}, ramferrors.NewRAMFError(err, "Payload is malformed")
	}

	return FieldSet{
		RecipientAddress: recipientAddress,
		MessageID:        messageID,
		CreationTime:     creationTime,
		TTLSeconds:       int(ttl),
		Payload:          payload,
	}, nil
}
