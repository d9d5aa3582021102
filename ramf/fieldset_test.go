package ramf_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycorp/ramf-go/ramf"
	"github.com/relaycorp/ramf-go/rsapss"
)

func TestNewFieldSetDefaultsMessageIDAndCreationTime(t *testing.T) {
	fs := ramf.NewFieldSet("0deadbeef", []byte("payload"), 60, clock.NewFake())
	assert.NotEmpty(t, fs.MessageID)
	assert.False(t, fs.CreationTime.IsZero())
}

func TestRecipientAddressLengthBoundary(t *testing.T) {
	cert, kp := issueSender(t)

	atLimit := strings.Repeat("a", ramf.MaxRecipientAddressLength)
	fs := ramf.NewFieldSet(atLimit, nil, 0, clock.NewFake())
	_, err := ramf.Serialize(context.Background(), fs, cargoFormat, kp.Private, cert, rsapss.SHA256, clock.NewFake(), nil)
	require.NoError(t, err)

	overLimit := strings.Repeat("a", ramf.MaxRecipientAddressLength+1)
	fs = ramf.NewFieldSet(overLimit, nil, 0, clock.NewFake())
	_, err = ramf.Serialize(context.Background(), fs, cargoFormat, kp.Private, cert, rsapss.SHA256, clock.NewFake(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Recipient address should not span more than")
}

func TestMessageIDLengthBoundary(t *testing.T) {
	cert, kp := issueSender(t)

	fs := ramf.NewFieldSet("0deadbeef", nil, 0, clock.NewFake())
	fs.MessageID = strings.Repeat("a", ramf.MaxMessageIDLength+1)
	_, err := ramf.Serialize(context.Background(), fs, cargoFormat, kp.Private, cert, rsapss.SHA256, clock.NewFake(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Message id should not span more than")
}

func TestVisibleStringCharacterRangeRejected(t *testing.T) {
	cert, kp := issueSender(t)

	fs := ramf.NewFieldSet("bad\x00address", nil, 0, clock.NewFake())
	_, err := ramf.Serialize(context.Background(), fs, cargoFormat, kp.Private, cert, rsapss.SHA256, clock.NewFake(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VisibleString range")
}

func TestTTLBoundaries(t *testing.T) {
	cert, kp := issueSender(t)

	for _, ttl := range []int{0, ramf.MaxTTLSeconds} {
		fs := ramf.NewFieldSet("0deadbeef", nil, ttl, clock.NewFake())
		_, err := ramf.Serialize(context.Background(), fs, cargoFormat, kp.Private, cert, rsapss.SHA256, clock.NewFake(), nil)
		require.NoError(t, err)
	}

	for _, ttl := range []int{-1, ramf.MaxTTLSeconds + 1} {
		fs := ramf.NewFieldSet("0deadbeef", nil, ttl, clock.NewFake())
		_, err := ramf.Serialize(context.Background(), fs, cargoFormat, kp.Private, cert, rsapss.SHA256, clock.NewFake(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TTL should be between")
	}
}

func TestPayloadSizeBoundary(t *testing.T) {
	cert, kp := issueSender(t)

	oversized := make([]byte, ramf.MaxPayloadLength+1)
	fs := ramf.NewFieldSet("0deadbeef", oversized, 0, clock.NewFake())
	_, err := ramf.Serialize(context.Background(), fs, cargoFormat, kp.Private, cert, rsapss.SHA256, clock.NewFake(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Payload should not span more than")
}

func TestCargoWithEmptyPayload(t *testing.T) {
	cert, kp := issueSender(t)

	fs := ramf.NewFieldSet("0deadbeef", []byte{}, 0, clock.NewFake())
	data, err := ramf.Serialize(context.Background(), fs, cargoFormat, kp.Private, cert, rsapss.SHA256, clock.NewFake(), nil)
	require.NoError(t, err)

	msg, err := ramf.Deserialize(data, cargoFormat, nil)
	require.NoError(t, err)
	assert.Empty(t, msg.Fields.Payload)
}
