package pebblelog

import "github.com/bft-labs/logbus/internal/domain"

// Keyspace layout (byte-wise sortable):
//   - c/{collection}/m          collection metadata
//   - c/{collection}/e/{id16}   entries in append order

var (
	collPrefix = []byte("c/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendCollection(dst []byte, coll string) []byte {
	dst = append(dst, collPrefix...)
	return append(dst, coll...)
}

func keyMeta(coll string) []byte {
	k := make([]byte, 0, len(coll)+8)
	k = appendCollection(k, coll)
	return append(k, metaSuffix...)
}

func entryPrefix(coll string) []byte {
	k := make([]byte, 0, len(coll)+8)
	k = appendCollection(k, coll)
	return append(k, entrySeg...)
}

// entryUpper is the exclusive upper bound of the entry range.
func entryUpper(coll string) []byte {
	k := entryPrefix(coll)
	k[len(k)-1]++
	return k
}

func keyEntry(coll string, id domain.RecordID) []byte {
	k := make([]byte, 0, len(coll)+8+len(id))
	k = append(k, entryPrefix(coll)...)
	return append(k, id...)
}

// collectionBounds covers every key of a collection.
func collectionBounds(coll string) (lower, upper []byte) {
	lower = appendCollection(make([]byte, 0, len(coll)+4), coll)
	lower = append(lower, '/')
	upper = append([]byte(nil), lower...)
	upper[len(upper)-1]++
	return lower, upper
}

func idFromEntryKey(coll string, key []byte) domain.RecordID {
	n := len(collPrefix) + len(coll) + len(entrySeg)
	if len(key) <= n {
		return nil
	}
	return append(domain.RecordID(nil), key[n:]...)
}
