package mongolog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bft-labs/logbus/internal/domain"
	"github.com/bft-labs/logbus/internal/ports"
)

// cursor wraps a tailable find cursor.
type cursor struct {
	cur   *mongo.Cursor
	await bool
}

var _ ports.Cursor = (*cursor)(nil)

func (c *cursor) TryNext(ctx context.Context) (domain.Record, bool, error) {
	if !c.cur.TryNext(ctx) {
		if err := c.cur.Err(); err != nil {
			return domain.Record{}, false, err
		}
		return domain.Record{}, false, nil
	}
	var doc document
	if err := c.cur.Decode(&doc); err != nil {
		return domain.Record{}, false, fmt.Errorf("mongolog: decode document: %w", err)
	}
	return doc.record(), true, nil
}

// Alive reports whether the server still holds the cursor open.
func (c *cursor) Alive() bool { return c.cur.ID() != 0 }

func (c *cursor) AwaitCapable() bool { return c.await }

func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }
