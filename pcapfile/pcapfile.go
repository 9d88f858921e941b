// Package pcapfile implements the capture-file exporter: it writes the
// classic capture-file format (little-endian, microsecond timestamps,
// Ethernet link type) from a cache snapshot, conformant with any DLT_EN10MB
// classic pcap reader.
package pcapfile

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"

	gzip "github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pallab-js/r-wire/cache"
	"github.com/pallab-js/r-wire/dissector"
	"github.com/pallab-js/r-wire/logging"
)

var exportLog = logging.New("pcapfile")

// Global header constants, per spec.md §4.5.
const (
	magicMicroseconds = 0xA1B2C3D4
	versionMajor      = 2
	versionMinor      = 4
	thisZone          = 0
	sigfigs           = 0
	snapLen           = 65535
	networkEthernet   = 1 // DLT_EN10MB
)

// ErrNoPacketsToExport is returned when the caller supplies an empty id
// list — distinct from ErrNoValidPackets, which fires when ids were given
// but none of them survived the cache lookup + re-validation.
var ErrNoPacketsToExport = errors.New("No packets to export")

// ErrNoValidPackets is returned when every requested id was missing from
// the cache, or present but no longer parseable.
var ErrNoValidPackets = errors.New("No valid packets found in cache")

// Export writes path (plain pcap) from the requested ids, looked up in c.
// Missing ids are skipped; present ids are re-validated by recomputing a
// summary, so frames whose bytes no longer parse are excluded the same way
// the capture pipeline would have dropped them at admission time. Output
// order is ascending by id regardless of the input order. Returns the
// number of packets written.
func Export(path string, ids []uint64, c *cache.Cache) (int, error) {
	return export(path, ids, c, false)
}

// ExportGzip writes a gzip-compressed pcap, an export option layered on top
// of the plain writer — the byte layout spec.md §4.5 describes is
// unchanged, only the file on disk is additionally gzipped.
func ExportGzip(path string, ids []uint64, c *cache.Cache) (int, error) {
	return export(path, ids, c, true)
}

func export(path string, ids []uint64, c *cache.Cache, compressed bool) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoPacketsToExport
	}

	type survivor struct {
		id        uint64
		bytes     []byte
		timestamp int64
	}

	survivors := make([]survivor, 0, len(ids))

	for _, id := range ids {
		cached, ok := c.Get(id)
		if !ok {
			continue
		}

		if _, ok := dissector.Summary(cached.Bytes, id, cached.TimestampNS); !ok {
			continue
		}

		survivors = append(survivors, survivor{id: id, bytes: cached.Bytes, timestamp: cached.TimestampNS})
	}

	if len(survivors) == 0 {
		return 0, ErrNoValidPackets
	}

	sort.Slice(survivors, func(i, j int) bool { return survivors[i].id < survivors[j].id })

	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrapf(err, "pcapfile: failed to create %s", path)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)

	var w io.Writer = bw

	var gz *gzip.Writer
	if compressed {
		gz = gzip.NewWriter(bw)
		w = gz
	}

	if err := writeGlobalHeader(w); err != nil {
		return 0, errors.Wrap(err, "pcapfile: failed to write global header")
	}

	for _, s := range survivors {
		if err := writeRecord(w, s.bytes, s.timestamp); err != nil {
			return 0, errors.Wrapf(err, "pcapfile: failed to write record for id %d", s.id)
		}
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return 0, errors.Wrap(err, "pcapfile: failed to flush gzip writer")
		}
	}

	if err := bw.Flush(); err != nil {
		return 0, errors.Wrap(err, "pcapfile: failed to flush file buffer")
	}

	exportLog.Info("exported pcap",
		zap.String("path", path),
		zap.Int("packets", len(survivors)),
		zap.Bool("compressed", compressed),
	)

	return len(survivors), nil
}

// writeGlobalHeader writes the 24-byte classic-pcap global header.
func writeGlobalHeader(w io.Writer) error {
	var hdr [24]byte

	binary.LittleEndian.PutUint32(hdr[0:4], magicMicroseconds)
	binary.LittleEndian.PutUint16(hdr[4:6], versionMajor)
	binary.LittleEndian.PutUint16(hdr[6:8], versionMinor)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(int32(thisZone)))
	binary.LittleEndian.PutUint32(hdr[12:16], sigfigs)
	binary.LittleEndian.PutUint32(hdr[16:20], snapLen)
	binary.LittleEndian.PutUint32(hdr[20:24], networkEthernet)

	_, err := w.Write(hdr[:])

	return err
}

// writeRecord writes the 16-byte per-record header followed by the raw
// bytes, per spec.md §4.5: ts_sec/ts_usec derived from timestampNS,
// captured_len = original_len = len(data).
func writeRecord(w io.Writer, data []byte, timestampNS int64) error {
	tsSec := timestampNS / 1_000_000_000

	tsUsec := (timestampNS % 1_000_000_000) / 1_000
	if tsUsec > 999_999 {
		tsUsec = 999_999
	}

	var hdr [16]byte

	binary.LittleEndian.PutUint32(hdr[0:4], uint32(tsSec))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(tsUsec))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(data)))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(data)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	_, err := w.Write(data)

	return err
}
