package pebblelog

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/bft-labs/logbus/internal/domain"
)

// Record IDs are 16 bytes big-endian: [8 bytes unix ms][8 bytes sequence].
// Byte order equals append order.
const idLen = 16

var nowMs = func() int64 { return time.Now().UnixMilli() }

// idGenerator issues strictly increasing IDs. If the clock steps back it
// keeps the last millisecond and bumps the sequence. Callers serialize
// access.
type idGenerator struct {
	lastMs int64
	seq    uint64
}

// seed continues after a previously issued ID.
func (g *idGenerator) seed(last domain.RecordID) {
	if len(last) != idLen {
		return
	}
	ms := int64(binary.BigEndian.Uint64(last[:8]))
	seq := binary.BigEndian.Uint64(last[8:])
	if ms > g.lastMs || (ms == g.lastMs && seq > g.seq) {
		g.lastMs, g.seq = ms, seq
	}
}

func (g *idGenerator) next() domain.RecordID {
	ms := nowMs()
	switch {
	case ms > g.lastMs:
		g.lastMs, g.seq = ms, 0
	case g.seq == math.MaxUint64:
		g.lastMs++
		g.seq = 0
	default:
		g.seq++
	}

	id := make(domain.RecordID, idLen)
	binary.BigEndian.PutUint64(id[:8], uint64(g.lastMs))
	binary.BigEndian.PutUint64(id[8:], g.seq)
	return id
}

func idTime(id domain.RecordID) time.Time {
	if len(id) != idLen {
		return time.Time{}
	}
	return time.UnixMilli(int64(binary.BigEndian.Uint64(id[:8])))
}
