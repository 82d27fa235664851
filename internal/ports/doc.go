// Package ports defines the interfaces (ports) that connect the backplane
// core to infrastructure adapters.
//
// Ports are the boundaries between the application core and the outside
// world. They define what the backplane needs from the log store and from
// the hosting process without specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [LogStore]: Owns the bounded append-only collection
//   - [Cursor]: A tailing read handle over that collection
//   - [Subscriber]: Delivery and error callbacks supplied by the host
//   - [StreamObserver]: Optional stream-open notifications for the host
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with Pebble
// and MongoDB.
package ports
