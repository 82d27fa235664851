// Package logbus provides a scale-out message backplane over a bounded,
// append-only log.
//
// Every application instance appends the batches it sends to one shared
// capped collection and tails the same collection for batches sent by any
// instance, itself included. Old records are evicted by the store once the
// collection reaches its size or record limit.
//
// # Basic Usage
//
//	cfg := logbus.Config{
//	    ConnectionString: "mongodb://localhost:27017/chat",
//	}
//
//	sub := logbus.SubscriberFuncs{
//	    Received: func(stream int, token uint64, msgs []logbus.Message) error {
//	        return hub.Dispatch(stream, msgs)
//	    },
//	}
//
//	bp, err := logbus.New(cfg, sub)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bp.Close()
//
//	if err := bp.Send(ctx, 0, msgs); err != nil {
//	    log.Printf("send failed: %v", err)
//	}
//
// # Stores
//
// The connection string selects the store:
//
//   - mongodb:// and mongodb+srv:// use a MongoDB capped collection with a
//     tailable, awaiting cursor.
//   - mem://name uses an in-process Pebble store shared by every backplane
//     in the process with the same name.
//   - pebble:///path or a plain directory uses an on-disk Pebble store.
//
// A custom store can be supplied with [WithStore].
//
// # Connection Lifecycle
//
// New returns immediately and connects in the background, retrying every
// Config.RetryDelay until it succeeds. Send connects on demand when the
// backplane is not connected. A store whose configuration is unusable, for
// example an existing collection that is not capped, stops the retries;
// [Backplane.WaitConnected] returns that error.
//
// # Delivery
//
// Records are delivered one at a time in append order. A record is marked
// consumed after its delivery attempt, whether or not the subscriber
// returned an error, and is not delivered again by any backplane on the
// same collection.
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler]) and pass it via
// [WithEventHandler] to observe state changes and failures. Events are
// called synchronously and should return quickly.
package logbus
