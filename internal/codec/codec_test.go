package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bft-labs/logbus/internal/domain"
)

func TestRoundTrip(t *testing.T) {
	msgs := []domain.Message{
		{
			Source:     "node-a",
			Key:        "hub.chat",
			Value:      []byte("hello"),
			CommandID:  "cmd-1",
			Filter:     "group:ops",
			WaitForAck: true,
			MappingID:  42,
		},
		{Source: "node-b", Key: "ack", IsAck: true},
		{Value: []byte{0x00, 0xff}},
	}

	b, err := Encode(7, msgs)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, msgs, got)

	batch, err := DecodeBatch(b)
	require.NoError(t, err)
	assert.Equal(t, 7, batch.StreamIndex)
}

func TestRoundTripEmptyBatch(t *testing.T) {
	b, err := Encode(0, []domain.Message{})
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRoundTripNegativeStream(t *testing.T) {
	b, err := Encode(-3, []domain.Message{{Key: "k"}})
	require.NoError(t, err)

	batch, err := DecodeBatch(b)
	require.NoError(t, err)
	assert.Equal(t, -3, batch.StreamIndex)
}

func TestEncodeNilBatch(t *testing.T) {
	_, err := Encode(1, nil)
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestEmptyValueDecodesAsNil(t *testing.T) {
	b, err := Encode(1, []domain.Message{{Key: "k", Value: []byte{}}})
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Value)
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	b, err := Encode(2, []domain.Message{{Key: "k"}})
	require.NoError(t, err)

	b = protowire.AppendTag(b, 15, protowire.VarintType)
	b = protowire.AppendVarint(b, 99)
	b = protowire.AppendTag(b, 16, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	batch, err := DecodeBatch(b)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.StreamIndex)
	assert.Equal(t, []domain.Message{{Key: "k"}}, batch.Messages)
}

func TestDecodeTruncated(t *testing.T) {
	b, err := Encode(1, []domain.Message{{Key: "key", Value: []byte("value")}})
	require.NoError(t, err)

	_, err = Decode(b[:len(b)-2])
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestDecodeWrongWireType(t *testing.T) {
	b := protowire.AppendTag(nil, fieldBatchMessage, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)

	_, err := Decode(b)
	assert.ErrorIs(t, err, domain.ErrEncoding)
}
