// Package domain contains the core entities and value objects for logbus.
//
// This package is the innermost layer of the backplane. It has no
// dependencies on the log store, logging or metrics and contains only the
// data shapes shared by every other layer.
//
// # Entities
//
//   - [Message]: A single application message relayed through the backplane
//   - [Record]: The durable unit stored in the bounded log
//   - [RecordID]: A store-assigned, ordered record identifier (watermark)
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
