package capture

import "github.com/pallab-js/r-wire/types"

// ChannelEmitter is the simplest Emitter: it forwards each batch onto a Go
// channel, the way the teacher's ChannelAuditRecordWriter exposes a
// GetChan() for a consumer to read serialized records from. It is the
// Emitter cmd/rwire's CLI uses to print batches as they arrive.
type ChannelEmitter struct {
	ch chan []types.PacketSummary
}

// NewChannelEmitter builds a ChannelEmitter with the given channel buffer
// depth.
func NewChannelEmitter(buffer int) *ChannelEmitter {
	return &ChannelEmitter{ch: make(chan []types.PacketSummary, buffer)}
}

// Emit implements Emitter. event is ignored here — "new_packet_batch" is
// the only event this pipeline ever emits (spec.md §6), so a ChannelEmitter
// doesn't need to multiplex on it.
func (e *ChannelEmitter) Emit(event string, batch []types.PacketSummary) error {
	batchCopy := make([]types.PacketSummary, len(batch))
	copy(batchCopy, batch)

	e.ch <- batchCopy

	return nil
}

// Batches returns the channel new_packet_batch emissions arrive on.
func (e *ChannelEmitter) Batches() <-chan []types.PacketSummary {
	return e.ch
}
