package domain

import (
	"bytes"
	"encoding/hex"
	"time"
)

// Status is the consumption status of a record.
type Status uint8

const (
	// StatusUnconsumed is the status of every freshly appended record.
	StatusUnconsumed Status = 0
	// StatusConsumed is set by the receive loop right after delivery.
	StatusConsumed Status = 1
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUnconsumed:
		return "unconsumed"
	case StatusConsumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// RecordID is an opaque, store-assigned identifier. IDs of one store sort
// byte-wise in insertion order. The empty ID sorts before every record and
// is the initial tailing watermark.
type RecordID []byte

// MinRecordID is the watermark positioned before all records.
var MinRecordID RecordID

// IsMin reports whether the ID is the "before all records" watermark.
func (id RecordID) IsMin() bool {
	return len(id) == 0
}

// Compare returns -1, 0, 1 based on byte-wise comparison.
func (id RecordID) Compare(other RecordID) int {
	return bytes.Compare(id, other)
}

// String returns a hex string, or "min" for the minimum watermark.
func (id RecordID) String() string {
	if id.IsMin() {
		return "min"
	}
	return hex.EncodeToString(id)
}

// Record is the durable unit stored in the bounded log.
type Record struct {
	// ID is assigned by the store on append
	ID RecordID

	// StreamIndex is the logical stream this batch belongs to
	StreamIndex int

	// Value is the encoded message batch
	Value []byte

	// Status is flipped to StatusConsumed after delivery
	Status Status

	// Created is the creation time embedded in the ID
	Created time.Time
}

// OrderingToken derives the delivery-ordering token handed to subscribers
// from the record creation time.
func (r Record) OrderingToken() uint64 {
	if r.Created.IsZero() {
		return 0
	}
	return uint64(r.Created.UnixNano())
}
