package der_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycorp/ramf-go/der"
)

func TestIntegerRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 127, 128, 255, 1 << 20, 15_552_000} {
		item := der.NewInteger(v)
		got, err := der.GetInteger(item)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestIsVisibleString(t *testing.T) {
	assert.True(t, der.IsVisibleString("https://gb.relaycorp.tech"))
	assert.True(t, der.IsVisibleString(""))
	assert.False(t, der.IsVisibleString("café"))
	assert.False(t, der.IsVisibleString("line1\nline2"))
}

func TestWithImplicitTagPreservesContents(t *testing.T) {
	item := der.NewOctetString([]byte{0xAB, 0xCD})
	full := der.SerializeSequence([]der.Item{item}, false)

	decoded, err := der.DeserializeHeterogeneousSequence(full)
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	b, err := der.GetOctetString(decoded[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xCD}, b)
}
