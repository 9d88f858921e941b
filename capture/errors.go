package capture

import "github.com/pkg/errors"

// errStopChannelFull surfaces the unlikely case that Stop is called while a
// stop signal is already pending — spec.md §5 calls this "impossible with
// capacity 1 unless already stopping".
var errStopChannelFull = errors.New("stop signal already pending")
