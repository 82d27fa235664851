package domain

// Message is a single application message carried inside a record.
// The backplane never inspects it; only the codec reads its fields.
type Message struct {
	// Source identifies the sender of the message
	Source string

	// Key is the routing key the host uses for local fan-out
	Key string

	// Value is the opaque application payload
	Value []byte

	// CommandID correlates command messages with their acknowledgements
	CommandID string

	// Filter is an optional host-defined delivery filter
	Filter string

	// WaitForAck asks the receiving host to acknowledge the command
	WaitForAck bool

	// IsAck marks the message as an acknowledgement
	IsAck bool

	// MappingID is a host-defined sequence for local cursor mapping
	MappingID uint64
}
