// Package pebblestore wraps a Pebble database with a durability policy and
// the few helpers the embedded log store needs: atomic batches, point reads
// that copy, and bounded iterators.
//
//	db, err := pebblestore.Open(pebblestore.Options{DataDir: "/var/lib/logbus"})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.Commit(b)
//
// Set Options.FS to vfs.NewMem() to keep the whole database in memory.
package pebblestore
