package session

import "github.com/pkg/errors"

// Error values are plain strings at this boundary, per spec.md §6 — callers
// across a process or FFI boundary only ever see .Error(), never a typed
// Go error. "PermissionError" is the sentinel the UI layer recognizes to
// prompt for elevation (spec.md §4.1, §6); it is surfaced verbatim from
// frsrc.ErrPermission rather than re-wrapped, so its .Error() text is
// exactly "PermissionError".
var (
	ErrAlreadyCapturing = errors.New("Capture already in progress")
	ErrPacketNotFound   = errors.New("Packet not found in cache.")
	ErrDissectFailed    = errors.New("Failed to dissect packet.")
)
