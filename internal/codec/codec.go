// Package codec encodes message batches into record payloads and back.
//
// Payloads use the protobuf wire format, written field by field with
// protowire so no generated code is needed:
//
//	batch   = 1:stream (zigzag varint) 2:message (bytes, repeated)
//	message = 1:source 2:key 3:value 4:command_id 5:filter
//	          6:wait_for_ack 7:is_ack 8:mapping_id
//
// Unknown fields are skipped on decode. Empty string and byte fields are
// omitted on encode, so zero-length byte values decode as nil.
package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bft-labs/logbus/internal/domain"
)

const (
	fieldBatchStream  protowire.Number = 1
	fieldBatchMessage protowire.Number = 2
)

const (
	fieldMsgSource protowire.Number = iota + 1
	fieldMsgKey
	fieldMsgValue
	fieldMsgCommandID
	fieldMsgFilter
	fieldMsgWaitForAck
	fieldMsgIsAck
	fieldMsgMappingID
)

// Batch is a decoded payload.
type Batch struct {
	StreamIndex int
	Messages    []domain.Message
}

// Encode serializes a batch of messages tagged with streamIndex.
// It fails with domain.ErrEncoding when msgs is nil; an empty, non-nil
// batch is valid.
func Encode(streamIndex int, msgs []domain.Message) ([]byte, error) {
	if msgs == nil {
		return nil, fmt.Errorf("%w: nil message batch", domain.ErrEncoding)
	}

	b := make([]byte, 0, estimateSize(msgs))
	b = protowire.AppendTag(b, fieldBatchStream, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(streamIndex)))

	var scratch []byte
	for i := range msgs {
		scratch = appendMessage(scratch[:0], &msgs[i])
		b = protowire.AppendTag(b, fieldBatchMessage, protowire.BytesType)
		b = protowire.AppendBytes(b, scratch)
	}
	return b, nil
}

// Decode returns the messages of an encoded batch.
func Decode(b []byte) ([]domain.Message, error) {
	batch, err := DecodeBatch(b)
	if err != nil {
		return nil, err
	}
	return batch.Messages, nil
}

// DecodeBatch returns the stream index and messages of an encoded batch.
func DecodeBatch(b []byte) (Batch, error) {
	batch := Batch{Messages: []domain.Message{}}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Batch{}, parseErr("batch tag", n)
		}
		b = b[n:]

		switch {
		case num == fieldBatchStream && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Batch{}, parseErr("stream index", n)
			}
			batch.StreamIndex = int(protowire.DecodeZigZag(v))
			b = b[n:]
		case num == fieldBatchMessage && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Batch{}, parseErr("message", n)
			}
			msg, err := decodeMessage(raw)
			if err != nil {
				return Batch{}, err
			}
			batch.Messages = append(batch.Messages, msg)
			b = b[n:]
		case num == fieldBatchStream || num == fieldBatchMessage:
			return Batch{}, fmt.Errorf("%w: field %d has wire type %d", domain.ErrEncoding, num, typ)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Batch{}, parseErr("unknown field", n)
			}
			b = b[n:]
		}
	}
	return batch, nil
}

func appendMessage(b []byte, m *domain.Message) []byte {
	b = appendString(b, fieldMsgSource, m.Source)
	b = appendString(b, fieldMsgKey, m.Key)
	if len(m.Value) > 0 {
		b = protowire.AppendTag(b, fieldMsgValue, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Value)
	}
	b = appendString(b, fieldMsgCommandID, m.CommandID)
	b = appendString(b, fieldMsgFilter, m.Filter)
	if m.WaitForAck {
		b = protowire.AppendTag(b, fieldMsgWaitForAck, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if m.IsAck {
		b = protowire.AppendTag(b, fieldMsgIsAck, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if m.MappingID != 0 {
		b = protowire.AppendTag(b, fieldMsgMappingID, protowire.VarintType)
		b = protowire.AppendVarint(b, m.MappingID)
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func decodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.Message{}, parseErr("message tag", n)
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return domain.Message{}, parseErr("message field", n)
			}
			switch num {
			case fieldMsgSource:
				m.Source = string(v)
			case fieldMsgKey:
				m.Key = string(v)
			case fieldMsgValue:
				m.Value = append([]byte(nil), v...)
				if len(m.Value) == 0 {
					m.Value = nil
				}
			case fieldMsgCommandID:
				m.CommandID = string(v)
			case fieldMsgFilter:
				m.Filter = string(v)
			}
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return domain.Message{}, parseErr("message field", n)
			}
			switch num {
			case fieldMsgWaitForAck:
				m.WaitForAck = v != 0
			case fieldMsgIsAck:
				m.IsAck = v != 0
			case fieldMsgMappingID:
				m.MappingID = v
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return domain.Message{}, parseErr("unknown message field", n)
			}
			b = b[n:]
		}
	}
	return m, nil
}

func estimateSize(msgs []domain.Message) int {
	size := 8
	for i := range msgs {
		m := &msgs[i]
		size += 24 + len(m.Source) + len(m.Key) + len(m.Value) + len(m.CommandID) + len(m.Filter)
	}
	return size
}

func parseErr(what string, n int) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrEncoding, what, protowire.ParseError(n))
}
