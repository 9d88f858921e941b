// Package session implements the command surface spec.md §4.6 describes:
// list_interfaces, start_capture, stop_capture, get_packet_detail and
// export_pcap, each blocking from the caller's perspective. It is the
// in-process analogue of the Tauri command layer the original backend
// exposed — the external dispatch surface that maps a UI's operations onto
// these calls is explicitly out of scope (spec.md §1) and is expected to
// sit on top of this package, not inside it.
package session

import (
	"sync"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/pallab-js/r-wire/cache"
	"github.com/pallab-js/r-wire/capture"
	"github.com/pallab-js/r-wire/config"
	"github.com/pallab-js/r-wire/dissector"
	"github.com/pallab-js/r-wire/frsrc"
	"github.com/pallab-js/r-wire/logging"
	"github.com/pallab-js/r-wire/pcapfile"
	"github.com/pallab-js/r-wire/types"
)

var sessionLog = logging.New("session")

// State owns the single capture session an instance may run at a time,
// the stop-channel handle, and the shared packet cache — the Go analogue
// of the original AppState, minus any UI framework binding.
type State struct {
	cfg     *config.Config
	c       *cache.Cache
	emitter capture.Emitter

	mu      sync.Mutex
	current *capture.Session
	running bool

	// id identifies this process's State for log correlation across
	// overlapping start/stop sequences; stamped once at construction, not
	// per capture session.
	id xid.ID
}

// New builds a State with the tunables in cfg (the package defaults when
// cfg is nil) and the given Emitter used for every capture session this
// State runs.
func New(cfg *config.Config, emitter capture.Emitter) *State {
	if cfg == nil {
		cfg = config.New()
	}

	return &State{
		cfg:     cfg,
		c:       cache.New(cfg),
		emitter: emitter,
		id:      xid.New(),
	}
}

// ListInterfaces returns the ordered list of device names reported by the
// host. No side effect.
func (s *State) ListInterfaces() ([]string, error) {
	names, err := frsrc.ListInterfaces()
	if err != nil {
		return nil, err
	}

	return names, nil
}

// StartCapture transitions Idle -> Running: it spawns the capture workers
// and clears the cache. Fails with ErrAlreadyCapturing if called while
// Running.
func (s *State) StartCapture(interfaceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyCapturing
	}

	sess := capture.New(s.cfg, s.c, s.emitter)
	if err := sess.Start(interfaceName); err != nil {
		return err
	}

	s.current = sess
	s.running = true

	sessionLog.Info("capture started",
		zap.String("interface", interfaceName),
		zap.String("session_id", s.id.String()),
	)

	return nil
}

// StopCapture transitions Running -> Idle by sending the stop signal. It
// does not wait for the consumer's final flush.
func (s *State) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.current.Stop()
	s.running = false
	s.current = nil

	sessionLog.Info("capture stopped", zap.String("session_id", s.id.String()))

	return err
}

// GetPacketDetail performs full dissection on the cached bytes for id,
// using the timestamp recorded at capture time rather than the system
// clock (spec.md §9's recommended, stricter behavior — see DESIGN.md).
func (s *State) GetPacketDetail(id uint64) (types.PacketDetail, error) {
	cached, ok := s.c.Get(id)
	if !ok {
		return types.PacketDetail{}, ErrPacketNotFound
	}

	detail, ok := dissector.Detail(cached.Bytes, id, cached.TimestampNS)
	if !ok {
		return types.PacketDetail{}, ErrDissectFailed
	}

	return detail, nil
}

// ExportPCAP writes a classic pcap file containing the requested ids, in
// ascending-id order, and returns the number of packets written.
func (s *State) ExportPCAP(path string, ids []uint64) (int, error) {
	return pcapfile.Export(path, ids, s.c)
}
