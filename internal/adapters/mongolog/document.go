package mongolog

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bft-labs/logbus/internal/domain"
)

// codeNamespaceExists is returned by create when another process won the
// race to create the collection.
const codeNamespaceExists = 48

// document is the stored shape of a record.
type document struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	StreamIndex int                `bson:"i"`
	Value       []byte             `bson:"v"`
	Status      int32              `bson:"t"`
}

func newDocument(rec domain.Record) document {
	return document{StreamIndex: rec.StreamIndex, Value: rec.Value, Status: int32(domain.StatusUnconsumed)}
}

func sentinelDocument() document {
	return document{Value: []byte{}, Status: int32(domain.StatusConsumed)}
}

func (d document) record() domain.Record {
	id := make(domain.RecordID, len(d.ID))
	copy(id, d.ID[:])
	return domain.Record{
		ID:          id,
		StreamIndex: d.StreamIndex,
		Value:       d.Value,
		Status:      domain.Status(d.Status),
		Created:     d.ID.Timestamp(),
	}
}

// objectID converts a watermark to a query bound. The minimum watermark
// maps to MinKey, which sorts before every ObjectID.
func objectID(id domain.RecordID) (interface{}, error) {
	if id.IsMin() {
		return primitive.MinKey{}, nil
	}
	if len(id) != len(primitive.ObjectID{}) {
		return nil, fmt.Errorf("mongolog: record id %s is not an ObjectID", id)
	}
	var oid primitive.ObjectID
	copy(oid[:], id)
	return oid, nil
}

// tailFilter selects unconsumed records after the watermark.
func tailFilter(after domain.RecordID) (bson.D, error) {
	bound, err := objectID(after)
	if err != nil {
		return nil, err
	}
	return bson.D{
		{Key: "_id", Value: bson.D{{Key: "$gt", Value: bound}}},
		{Key: "t", Value: int32(domain.StatusUnconsumed)},
	}, nil
}

func consumedUpdate() bson.D {
	return bson.D{{Key: "$set", Value: bson.D{{Key: "t", Value: int32(domain.StatusConsumed)}}}}
}

func isNamespaceExists(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(codeNamespaceExists)
}
