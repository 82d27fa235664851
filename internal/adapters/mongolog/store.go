// Package mongolog implements the bounded tailing log on a MongoDB capped
// collection, read through a tailable await cursor.
package mongolog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/internal/ports"
)

// DefaultDatabase is used when the connection string names no database.
const DefaultDatabase = "logbus"

// IsTarget reports whether conn is a MongoDB connection string.
func IsTarget(conn string) bool {
	return strings.HasPrefix(conn, "mongodb://") || strings.HasPrefix(conn, "mongodb+srv://")
}

// Config configures a Store.
type Config struct {
	URI            string
	Collection     string
	MaxBytes       int64
	MaxRecords     int64
	AwaitTimeout   time.Duration
	ConnectTimeout time.Duration
	Logger         ports.Logger
}

// Store is a ports.LogStore on a MongoDB capped collection.
type Store struct {
	cfg      Config
	database string
	logger   ports.Logger

	mu     sync.Mutex
	client *mongo.Client
	coll   *mongo.Collection
	closed bool

	healthy atomic.Bool
}

var _ ports.LogStore = (*Store)(nil)

// New validates cfg and returns an unconnected Store.
func New(cfg Config) (*Store, error) {
	if !IsTarget(cfg.URI) {
		return nil, fmt.Errorf("%w: not a mongodb connection string", domain.ErrConfiguration)
	}
	cs, err := connstring.ParseAndValidate(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: empty collection name", domain.ErrConfiguration)
	}
	if cfg.MaxBytes <= 0 || cfg.MaxRecords <= 0 {
		return nil, fmt.Errorf("%w: collection caps must be positive", domain.ErrConfiguration)
	}
	if cfg.AwaitTimeout <= 0 {
		cfg.AwaitTimeout = time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}

	database := cs.Database
	if database == "" {
		database = DefaultDatabase
	}
	return &Store{cfg: cfg, database: database, logger: logger}, nil
}

func (s *Store) Name() string {
	return "mongodb/" + s.database + "." + s.cfg.Collection
}

func (s *Store) Healthy() bool { return s.healthy.Load() }

// Open connects and ensures the capped collection exists.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("mongolog: store closed")
	}

	if s.client == nil {
		opts := options.Client().
			ApplyURI(s.cfg.URI).
			SetConnectTimeout(s.cfg.ConnectTimeout).
			SetServerSelectionTimeout(s.cfg.ConnectTimeout)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return err
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return err
		}
		s.client = client
		s.logger.Info("opened database", ports.String("database", s.database))
	}

	coll, err := s.ensureCollection(ctx, s.client.Database(s.database))
	if err != nil {
		return err
	}
	s.coll = coll
	s.healthy.Store(true)
	s.logger.Info("opened collection", ports.String("collection", s.cfg.Collection))
	return nil
}

func (s *Store) ensureCollection(ctx context.Context, db *mongo.Database) (*mongo.Collection, error) {
	name := s.cfg.Collection
	specs, err := db.ListCollectionSpecifications(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return nil, err
	}

	if len(specs) == 0 {
		opts := options.CreateCollection().
			SetCapped(true).
			SetSizeInBytes(s.cfg.MaxBytes).
			SetMaxDocuments(s.cfg.MaxRecords)
		err := db.CreateCollection(ctx, name, opts)
		switch {
		case err == nil:
			coll := db.Collection(name)
			// a tailable cursor on an empty collection is dead on arrival
			if _, err := coll.InsertOne(ctx, sentinelDocument()); err != nil {
				return nil, err
			}
			s.logger.Info("created capped collection",
				ports.String("collection", name),
				ports.Int64("max_bytes", s.cfg.MaxBytes),
				ports.Int64("max_records", s.cfg.MaxRecords))
			return coll, nil
		case isNamespaceExists(err):
			specs, err = db.ListCollectionSpecifications(ctx, bson.D{{Key: "name", Value: name}})
			if err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	for _, spec := range specs {
		if spec.Name != name {
			continue
		}
		if capped, ok := spec.Options.Lookup("capped").BooleanOK(); !ok || !capped {
			s.logger.Warn("existing collection is not capped", ports.String("collection", name))
			return nil, fmt.Errorf("%w: collection %s must be capped", domain.ErrConfiguration, name)
		}
		return db.Collection(name), nil
	}
	return nil, fmt.Errorf("mongolog: collection %s vanished during open", name)
}

func (s *Store) collection() (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coll == nil {
		return nil, errors.New("mongolog: store not opened")
	}
	return s.coll, nil
}

func (s *Store) Append(ctx context.Context, rec domain.Record) (domain.RecordID, error) {
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	res, err := coll.InsertOne(ctx, newDocument(rec))
	if err != nil {
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			s.healthy.Store(false)
		}
		return nil, err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("mongolog: unexpected inserted id %T", res.InsertedID)
	}
	return domain.RecordID(oid[:]), nil
}

func (s *Store) Tail(ctx context.Context, after domain.RecordID) (ports.Cursor, error) {
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	filter, err := tailFilter(after)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetCursorType(options.TailableAwait).
		SetNoCursorTimeout(true).
		SetMaxAwaitTime(s.cfg.AwaitTimeout)
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return &cursor{cur: cur, await: true}, nil
}

func (s *Store) MarkConsumed(ctx context.Context, id domain.RecordID) error {
	coll, err := s.collection()
	if err != nil {
		return err
	}
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	_, err = coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, consumedUpdate())
	return err
}

// Close disconnects the client. Later calls are no-ops.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.healthy.Store(false)
	s.coll = nil
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}
