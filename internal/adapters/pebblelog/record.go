package pebblelog

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/bft-labs/logbus/internal/domain"
)

// Values are framed as: uvarint headerLen | header | payload | crc32c(header|payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var errCorrupt = errors.New("pebblelog: corrupt record")

func frame(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	return binary.BigEndian.AppendUint32(out, crc)
}

// unframe returns header and payload aliasing b.
func unframe(b []byte) (header, payload []byte, err error) {
	if len(b) < 1+4 {
		return nil, nil, errCorrupt
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)-n-4) < hlen {
		return nil, nil, errCorrupt
	}
	header = b[n : n+int(hlen)]
	payload = b[n+int(hlen) : len(b)-4]

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return nil, nil, errCorrupt
	}
	return header, payload, nil
}

// entry header: status byte | stream varint

func encodeEntry(status domain.Status, stream int, payload []byte) []byte {
	header := make([]byte, 0, 1+binary.MaxVarintLen64)
	header = append(header, byte(status))
	header = binary.AppendVarint(header, int64(stream))
	return frame(header, payload)
}

type entry struct {
	status  domain.Status
	stream  int
	payload []byte
}

func decodeEntry(b []byte) (entry, error) {
	header, payload, err := unframe(b)
	if err != nil {
		return entry{}, err
	}
	if len(header) < 2 {
		return entry{}, errCorrupt
	}
	stream, n := binary.Varint(header[1:])
	if n <= 0 {
		return entry{}, errCorrupt
	}
	return entry{status: domain.Status(header[0]), stream: int(stream), payload: payload}, nil
}

const metaVersion = 1

// meta describes a collection. Count and Bytes track live entries.
type meta struct {
	Capped     bool
	MaxBytes   int64
	MaxRecords int64
	Count      int64
	Bytes      int64
	LastID     domain.RecordID
}

func encodeMeta(m meta) []byte {
	var capped byte
	if m.Capped {
		capped = 1
	}
	body := make([]byte, 0, 4*binary.MaxVarintLen64+len(m.LastID)+1)
	body = append(body, capped)
	body = binary.AppendUvarint(body, uint64(m.MaxBytes))
	body = binary.AppendUvarint(body, uint64(m.MaxRecords))
	body = binary.AppendUvarint(body, uint64(m.Count))
	body = binary.AppendUvarint(body, uint64(m.Bytes))
	body = append(body, m.LastID...)
	return frame([]byte{metaVersion}, body)
}

func decodeMeta(b []byte) (meta, error) {
	header, body, err := unframe(b)
	if err != nil {
		return meta{}, err
	}
	if len(header) != 1 || header[0] != metaVersion || len(body) < 1 {
		return meta{}, errCorrupt
	}

	m := meta{Capped: body[0] == 1}
	body = body[1:]
	for _, dst := range []*int64{&m.MaxBytes, &m.MaxRecords, &m.Count, &m.Bytes} {
		v, n := binary.Uvarint(body)
		if n <= 0 {
			return meta{}, errCorrupt
		}
		*dst = int64(v)
		body = body[n:]
	}
	if len(body) > 0 {
		m.LastID = append(domain.RecordID(nil), body...)
	}
	return m, nil
}
