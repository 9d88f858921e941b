// Package frsrc implements the Frame Source capability: opening a network
// device in promiscuous mode and yielding successive link-layer frames.
// It is the only package in this module that talks to libpcap; everything
// above it depends on the Source interface, not on gopacket/pcap directly.
package frsrc

import (
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"

	"github.com/pallab-js/r-wire/config"
	"github.com/pallab-js/r-wire/types"
)

// ErrTimeout is returned by NextFrame when no frame arrived within the
// source's internal poll window. It is not a failure: callers should loop
// and call NextFrame again.
var ErrTimeout = errors.New("frsrc: read timeout")

// ErrPermission is returned by Open when the OS reports insufficient
// privilege to open the device. Detected by string-matching the underlying
// pcap error, since libpcap does not expose a structured permission error.
var ErrPermission = errors.New("PermissionError")

// ErrDeviceOpen wraps any other device open/activate failure.
var ErrDeviceOpen = errors.New("frsrc: failed to open device")

// Source is the capability an opened frame source exposes. Implementations
// must be safe to use from a single dedicated goroutine (the capture
// pipeline's producer); Source is not required to be safe for concurrent
// use from multiple goroutines.
type Source interface {
	// NextFrame blocks until a frame arrives, the internal poll window
	// elapses (ErrTimeout), or a fatal error occurs. It does not assign an
	// id — the caller (the capture pipeline's producer) owns the
	// monotonic id counter.
	NextFrame() (types.RawFrame, error)
	// Close releases the underlying device.
	Close()
}

// pcapSource is the libpcap-backed Source implementation.
type pcapSource struct {
	handle *pcap.Handle
}

// Open activates a device for capture: promiscuous mode, the configured
// snaplen, and the configured per-read timeout. It mirrors the two-step
// inactive-handle/activate sequence so permission failures at either step
// are classified the same way.
func Open(deviceName string, cfg *config.Config) (Source, error) {
	inactive, err := pcap.NewInactiveHandle(deviceName)
	if err != nil {
		return nil, classifyOpenError(err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(int(cfg.SnapLen)); err != nil {
		return nil, errors.Wrap(ErrDeviceOpen, err.Error())
	}

	if err := inactive.SetPromisc(true); err != nil {
		return nil, errors.Wrap(ErrDeviceOpen, err.Error())
	}

	if err := inactive.SetTimeout(cfg.SourceTimeout); err != nil {
		return nil, errors.Wrap(ErrDeviceOpen, err.Error())
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, classifyOpenError(err)
	}

	return &pcapSource{handle: handle}, nil
}

func classifyOpenError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "denied") || strings.Contains(msg, "eperm") {
		return ErrPermission
	}

	return errors.Wrap(ErrDeviceOpen, err.Error())
}

// NextFrame reads the next packet off the handle. pcap.Handle.ReadPacketData
// blocks for up to the configured timeout before returning
// pcap.NextErrorTimeoutExpired, which this maps to ErrTimeout.
func (s *pcapSource) NextFrame() (types.RawFrame, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, pcap.NextErrorTimeoutExpired) {
			return types.RawFrame{}, ErrTimeout
		}

		return types.RawFrame{}, errors.Wrap(err, "frsrc: fatal read error")
	}

	return types.RawFrame{
		Bytes:       data,
		TimestampNS: tsToNanos(ci),
	}, nil
}

func tsToNanos(ci gopacket.CaptureInfo) int64 {
	sec := int64(ci.Timestamp.Unix())
	usec := int64(ci.Timestamp.Nanosecond() / int(time.Microsecond))

	return sec*1_000_000_000 + usec*1_000
}

func (s *pcapSource) Close() {
	s.handle.Close()
}

// ListInterfaces returns the ordered list of device names reported by the
// host, as seen by libpcap.
func ListInterfaces() ([]string, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return nil, errors.Wrap(err, "frsrc: failed to list interfaces")
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}

	return names, nil
}
