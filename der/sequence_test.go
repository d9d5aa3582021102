package der_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycorp/ramf-go/der"
)

func TestSerializeSequenceImplicitTagging(t *testing.T) {
	items := []der.Item{
		der.NewVisibleString("hello"),
		der.NewOctetString([]byte{1, 2, 3}),
	}
	encoded := der.SerializeSequence(items, false)

	decoded, err := der.DeserializeHeterogeneousSequence(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, der.ClassContextSpecific, decoded[0].Class)
	assert.Equal(t, 0, decoded[0].Tag)
	assert.Equal(t, der.ClassContextSpecific, decoded[1].Class)
	assert.Equal(t, 1, decoded[1].Tag)

	s, err := der.GetVisibleString(decoded[0])
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	b, err := der.GetOctetString(decoded[1])
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestSerializeSequenceExplicitTagging(t *testing.T) {
	items := []der.Item{der.NewVisibleString("x")}
	encoded := der.SerializeSequence(items, true)

	decoded, err := der.DeserializeHeterogeneousSequence(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, der.ClassUniversal, decoded[0].Class)
	assert.Equal(t, der.TagVisibleString, decoded[0].Tag)
}

func TestDeserializeHeterogeneousSequenceRejectsEmpty(t *testing.T) {
	_, err := der.DeserializeHeterogeneousSequence(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Value is empty")
}

func TestDeserializeHeterogeneousSequenceRejectsNonDER(t *testing.T) {
	_, err := der.DeserializeHeterogeneousSequence([]byte{0xFF, 0xFF, 0xFF})
	require.Error(t, err)
}

func TestDeserializeHeterogeneousSequenceRejectsNonSequence(t *testing.T) {
	notASequence := der.NewVisibleString("not a sequence").FullBytes()
	_, err := der.DeserializeHeterogeneousSequence(notASequence)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Value is not an ASN.1 sequence")
}

func TestDeserializeHomogeneousSequence(t *testing.T) {
	encoded := der.SerializeSequence([]der.Item{
		der.NewVisibleString("a"),
		der.NewVisibleString("b"),
	}, false)

	strs, err := der.DeserializeHomogeneousSequence(encoded, der.GetVisibleString)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, strs)
}

func TestDeserializeHomogeneousSequenceRejectsMismatch(t *testing.T) {
	encoded := der.SerializeSequence([]der.Item{
		der.NewVisibleString("a"),
		der.NewOctetString([]byte{9}),
	}, false)

	decode := func(it der.Item) (string, error) {
		return der.GetVisibleString(it)
	}

	_, err := der.DeserializeHomogeneousSequence(encoded, decode)
	require.Error(t, err)
}

func TestObjectIdentifierEqual(t *testing.T) {
	a := der.ObjectIdentifier{1, 2, 840, 113549}
	b := der.ObjectIdentifier{1, 2, 840, 113549}
	c := der.ObjectIdentifier{1, 2, 840, 113550}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
