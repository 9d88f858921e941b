// Package capture implements the capture pipeline: a producer running on a
// dedicated OS thread performing blocking reads from a Frame Source, and a
// consumer running as a single cooperative goroutine that parses
// summaries, admits bytes into the packet cache, and batches outgoing
// summaries under a dual size/time trigger.
package capture

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pallab-js/r-wire/cache"
	"github.com/pallab-js/r-wire/config"
	"github.com/pallab-js/r-wire/dissector"
	"github.com/pallab-js/r-wire/frsrc"
	"github.com/pallab-js/r-wire/logging"
	"github.com/pallab-js/r-wire/metrics"
	"github.com/pallab-js/r-wire/types"
)

var captureLog = logging.New("capture")

// Emitter is the capability the consumer uses to deliver a batch of
// summaries to whatever is playing the UI process's role. The consumer
// always passes the event name "new_packet_batch" (spec.md §6) alongside
// the payload, so the session/command-surface layer can swap in a channel,
// a websocket, or a Tauri-style emit_all without the pipeline knowing which.
type Emitter interface {
	Emit(event string, batch []types.PacketSummary) error
}

// Session runs one capture session: the producer/consumer pair described
// above. Session keeps no Idle/Running state of its own; the session
// package tracks that state and enforces one running Session per process
// instance.
type Session struct {
	cfg     *config.Config
	cache   *cache.Cache
	emitter Emitter

	stopCh     chan struct{}
	doneCh     chan struct{}
	cancel     chan struct{}
	cancelOnce sync.Once
}

// New constructs a Session bound to cache c and emitter e.
func New(cfg *config.Config, c *cache.Cache, e Emitter) *Session {
	dissector.SetDebug(cfg.Debug)

	return &Session{
		cfg:     cfg,
		cache:   c,
		emitter: e,
	}
}

// Start opens the named device and spawns the producer and consumer. It
// returns once the device is confirmed open (so a PermissionError or
// DeviceOpenError surfaces synchronously to the caller, per spec.md §4.4
// point 1); the producer/consumer then run until Stop is called or the
// source fails.
func (s *Session) Start(deviceName string) error {
	source, err := frsrc.Open(deviceName, s.cfg)
	if err != nil {
		return err
	}

	s.cache.Clear()

	s.stopCh = make(chan struct{}, 1)
	s.doneCh = make(chan struct{})
	s.cancel = make(chan struct{})
	s.cancelOnce = sync.Once{}

	frames := make(chan types.Frame, 1024)

	go s.runProducer(source, frames, s.cancel)
	go s.runConsumer(frames)

	return nil
}

// Stop sends a single non-blocking stop signal to the consumer and closes
// the producer's cancel channel. The consumer flushes any pending batch
// exactly once before exiting; Stop does not wait for that to happen
// (spec.md §5: no ordering is guaranteed between Stop returning and the
// final batch arriving). Closing cancel is what actually reclaims the
// producer's dedicated OS thread and the open frame source — per spec.md
// §4.4/§5 the producer is cancelled transitively, and may still complete
// one more blocking read (bounded by the source's poll timeout) before it
// observes cancellation and exits.
func (s *Session) Stop() error {
	s.cancelOnce.Do(func() { close(s.cancel) })

	select {
	case s.stopCh <- struct{}{}:
		return nil
	default:
		return errStopChannelFull
	}
}

// Wait blocks until the consumer loop has exited (for tests and for a
// caller that wants to join a session's lifetime deterministically; the
// command surface itself does not need this since Stop is fire-and-forget
// per spec).
func (s *Session) Wait() {
	if s.doneCh != nil {
		<-s.doneCh
	}
}

// runProducer is the blocking worker: it owns the monotonic id counter and
// reads frames from source until the source reports a fatal error or cancel
// is closed; either way it closes frames on exit. It locks its goroutine to
// a dedicated OS thread (runtime.LockOSThread) for its whole lifetime.
//
// cancel is checked once per loop iteration rather than selected on inside
// the blocking NextFrame call itself, so a Stop may still let the producer
// complete one more read — bounded by the source's poll timeout — before
// it is observed (spec.md §4.4/§5).
func (s *Session) runProducer(source frsrc.Source, frames chan<- types.Frame, cancel <-chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer source.Close()

	var idCounter uint64

	for {
		select {
		case <-cancel:
			close(frames)

			return
		default:
		}

		raw, err := source.NextFrame()
		switch {
		case err == nil:
			idCounter++

			// A full channel blocks here rather than drops; the blocking
			// read above already self-paces the producer relative to the
			// consumer's fixed tick (spec.md §4.4). cancel is also selected
			// here so a Stop issued while the channel is full still wakes
			// the producer instead of leaving it blocked on the send.
			select {
			case frames <- types.Frame{ID: idCounter, Bytes: raw.Bytes, TimestampNS: raw.TimestampNS}:
			case <-cancel:
				close(frames)

				return
			}
		case err == frsrc.ErrTimeout:
			continue
		default:
			captureLog.Warn("producer stopped on fatal read error", zap.Error(err))
			close(frames)

			return
		}
	}
}

// runConsumer is the cooperative loop: it wakes on a fixed tick to drain
// frames non-blockingly, and separately watches the stop channel.
func (s *Session) runConsumer(frames <-chan types.Frame) {
	defer close(s.doneCh)

	var (
		batch    []types.PacketSummary
		lastEmit = time.Now()
		ticker   = time.NewTicker(s.cfg.PollTick)
	)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		if err := s.emitter.Emit("new_packet_batch", batch); err != nil {
			captureLog.Warn("failed to emit batch", zap.Error(err))
		} else {
			metrics.BatchesEmitted.Inc()
		}

		batch = nil
		lastEmit = time.Now()
	}

	for {
		select {
		case <-s.stopCh:
			s.drainAvailable(frames, &batch)
			flush()

			return

		case <-ticker.C:
			disconnected := s.drainAvailable(frames, &batch)

			if len(batch) >= s.cfg.BatchSize || time.Since(lastEmit) >= s.cfg.BatchTimeout {
				flush()
			}

			if disconnected {
				flush()

				return
			}
		}
	}
}

// drainAvailable pulls every frame currently queued without blocking,
// admitting each into the cache and batch. It reports whether the frames
// channel was found closed (producer disconnected).
func (s *Session) drainAvailable(frames <-chan types.Frame, batch *[]types.PacketSummary) (disconnected bool) {
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return true
			}

			s.admit(frame, batch)
		default:
			return false
		}
	}
}

// admit parses frame's summary; on success it inserts into the cache and
// appends to batch, on failure it drops the frame entirely — no cache
// admission, no batch entry, and the id is not reused (spec.md §3, §7).
func (s *Session) admit(frame types.Frame, batch *[]types.PacketSummary) {
	summary, ok := dissector.Summary(frame.Bytes, frame.ID, frame.TimestampNS)
	if !ok {
		metrics.PacketsDropped.Inc()

		return
	}

	s.cache.Insert(frame.ID, types.CachedPacket{Bytes: frame.Bytes, TimestampNS: frame.TimestampNS})
	*batch = append(*batch, summary)

	metrics.PacketsAdmitted.WithLabelValues(summary.Protocol).Inc()
}
