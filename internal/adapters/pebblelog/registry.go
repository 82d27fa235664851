package pebblelog

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble/vfs"

	pebblestore "github.com/bft-labs/logbus/internal/storage/pebble"
)

const (
	schemeMem    = "mem://"
	schemePebble = "pebble://"
	memDataDir   = "logbus"
)

// IsTarget reports whether conn addresses an embedded store: mem://name,
// pebble:///dir or a plain filesystem path.
func IsTarget(conn string) bool {
	return strings.HasPrefix(conn, schemeMem) ||
		strings.HasPrefix(conn, schemePebble) ||
		(conn != "" && !strings.Contains(conn, "://"))
}

type target struct {
	key string
	dir string
	mem string
}

func parseTarget(conn string) (target, error) {
	switch {
	case strings.HasPrefix(conn, schemeMem):
		name := strings.TrimPrefix(conn, schemeMem)
		if name == "" {
			return target{}, fmt.Errorf("pebblelog: empty in-memory store name in %q", conn)
		}
		return target{key: conn, dir: memDataDir, mem: name}, nil
	case strings.HasPrefix(conn, schemePebble):
		conn = strings.TrimPrefix(conn, schemePebble)
	case strings.Contains(conn, "://"):
		return target{}, fmt.Errorf("pebblelog: unsupported target %q", conn)
	}
	if conn == "" {
		return target{}, fmt.Errorf("pebblelog: empty data directory")
	}
	dir := filepath.Clean(conn)
	return target{key: dir, dir: dir}, nil
}

// engine is one Pebble database shared by every store opened on the same
// target in this process.
type engine struct {
	key  string
	db   *pebblestore.DB
	refs int

	// mu serializes writers; readers hold it shared so the database cannot
	// close under an iterator.
	mu     sync.RWMutex
	closed bool
	colls  map[string]*collState
}

// collState is the in-process view of one collection.
type collState struct {
	meta   meta
	loaded bool
	ids    idGenerator
	// gen changes when the collection is dropped; cursors opened on an
	// older generation are dead.
	gen uint64
	// notify is closed and replaced on every append.
	notify chan struct{}
}

func (e *engine) collection(name string) *collState {
	cs, ok := e.colls[name]
	if !ok {
		cs = &collState{notify: make(chan struct{})}
		e.colls[name] = cs
	}
	return cs
}

func (cs *collState) wake() {
	close(cs.notify)
	cs.notify = make(chan struct{})
}

var registry = struct {
	sync.Mutex
	engines map[string]*engine
	// memFS outlives engines so an in-memory store survives close and
	// reopen within the process.
	memFS map[string]vfs.FS
}{
	engines: make(map[string]*engine),
	memFS:   make(map[string]vfs.FS),
}

func acquire(t target) (*engine, error) {
	registry.Lock()
	defer registry.Unlock()

	if e, ok := registry.engines[t.key]; ok {
		e.refs++
		return e, nil
	}

	opts := pebblestore.Options{DataDir: t.dir}
	if t.mem != "" {
		fs, ok := registry.memFS[t.mem]
		if !ok {
			fs = vfs.NewMem()
			registry.memFS[t.mem] = fs
		}
		opts.FS = fs
		opts.Sync = pebblestore.SyncNever
	}

	db, err := pebblestore.Open(opts)
	if err != nil {
		return nil, err
	}
	e := &engine{key: t.key, db: db, refs: 1, colls: make(map[string]*collState)}
	registry.engines[t.key] = e
	return e, nil
}

func (e *engine) release() error {
	registry.Lock()
	defer registry.Unlock()

	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(registry.engines, e.key)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for _, cs := range e.colls {
		cs.wake()
	}
	return e.db.Close()
}
