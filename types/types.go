// Package types holds the data model shared across the capture pipeline,
// the dissector, the packet cache and the exporter.
package types

// Protocol name constants used in PacketSummary.Protocol. Kept as constants to avoid repeated string allocations on the
// capture hot path.
const (
	ProtoTCP     = "TCP"
	ProtoUDP     = "UDP"
	ProtoICMP    = "ICMP"
	ProtoICMPv6  = "ICMPv6"
	ProtoIPv4    = "IPv4"
	ProtoIPv6    = "IPv6"
	ProtoARP     = "ARP"
	ProtoUnknown = "Unknown"
)

// RawFrame is what a Frame Source yields for a single successful read:
// the raw bytes and the source's capture timestamp. It carries no id yet —
// id assignment is the producer's responsibility (spec'd as a property of
// the capture pipeline, not the source).
type RawFrame struct {
	Bytes       []byte
	TimestampNS int64
}

// Frame is the transient unit handed from the producer to the consumer over
// the cross-thread queue, once an id has been assigned. It is never
// persisted as-is; the consumer either drops it (summary parse failure) or
// turns it into a CachedPacket plus a PacketSummary.
type Frame struct {
	ID          uint64
	Bytes       []byte
	TimestampNS int64
}

// CachedPacket is what the packet cache stores, keyed by Frame.ID.
type CachedPacket struct {
	Bytes       []byte
	TimestampNS int64
}

// PacketSummary is the one-line, list-view representation of a frame. It is
// what gets batched and emitted to the UI consumer.
type PacketSummary struct {
	ID          uint64 `json:"id"`
	TimestampNS int64  `json:"timestamp_ns"`
	SourceAddr  string `json:"source_addr"`
	DestAddr    string `json:"dest_addr"`
	Protocol    string `json:"protocol"`
	Length      uint32 `json:"length"`
	Info        string `json:"info"`
}

// ProtocolLayer is one layer of a PacketDetail's layer tree. Fields is
// ordered; the order is meaningful and is the intended display order.
type ProtocolLayer struct {
	Name   string      `json:"name"`
	Fields []FieldPair `json:"fields"`
}

// FieldPair is a single (key, value) entry inside a ProtocolLayer. A plain
// map isn't used here because map iteration order is undefined in Go and
// the display order of fields is part of the contract.
type FieldPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Field is a small constructor to keep call sites in the dissector terse.
func Field(key, value string) FieldPair {
	return FieldPair{Key: key, Value: value}
}

// PacketDetail is the layered, field-by-field representation of a frame
// used for inspection, plus the summary and the raw bytes for a hex view.
type PacketDetail struct {
	Summary  PacketSummary   `json:"summary"`
	Layers   []ProtocolLayer `json:"layers"`
	RawBytes []byte          `json:"raw_bytes"`
}
