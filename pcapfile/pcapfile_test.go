package pcapfile

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pallab-js/r-wire/cache"
	"github.com/pallab-js/r-wire/config"
	"github.com/pallab-js/r-wire/types"
)

func mustHex(t *testing.T, parts ...string) []byte {
	t.Helper()

	raw, err := hex.DecodeString(strings.Join(parts, ""))
	require.NoError(t, err)

	return raw
}

func validTCPFrame(t *testing.T) []byte {
	t.Helper()

	eth := mustHex(t, "001122334455", "667788990aab", "0800")
	ip4 := mustHex(t, "4500003c000100004006", "0000", "c0a80101", "c0a80102")
	tcp := mustHex(t, "d431", "0050", "00000000", "00000000", "5002", "2000", "00000000", "00")

	return append(append(append([]byte{}, eth...), ip4...), tcp...)
}

func newCacheWithFrames(t *testing.T, frames map[uint64][]byte) *cache.Cache {
	t.Helper()

	c := cache.New(config.New())
	for id, bytes := range frames {
		c.Insert(id, types.CachedPacket{Bytes: bytes, TimestampNS: int64(id) * 1_000_000_000})
	}

	return c
}

func TestExport_EmptyIDsReturnsNoPacketsToExport(t *testing.T) {
	c := newCacheWithFrames(t, nil)

	path := filepath.Join(t.TempDir(), "out.pcap")

	n, err := Export(path, nil, c)
	assert.Equal(t, 0, n)
	assert.Equal(t, ErrNoPacketsToExport, err)
}

func TestExport_NoValidPacketsWhenAllIDsMissing(t *testing.T) {
	c := newCacheWithFrames(t, nil)

	path := filepath.Join(t.TempDir(), "out.pcap")

	n, err := Export(path, []uint64{1, 2, 3}, c)
	assert.Equal(t, 0, n)
	assert.Equal(t, ErrNoValidPackets, err)
}

func TestExport_SkipsUndecodableFrames(t *testing.T) {
	frame := validTCPFrame(t)

	c := newCacheWithFrames(t, map[uint64][]byte{
		1: frame,
		2: {0x00, 0x01}, // too short to decode — dropped like an admission-time failure
	})

	path := filepath.Join(t.TempDir(), "out.pcap")

	n, err := Export(path, []uint64{1, 2}, c)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// S6 — exported file's global header matches the classic pcap layout
// byte-for-byte.
func TestExport_GlobalHeaderBytes(t *testing.T) {
	frame := validTCPFrame(t)
	c := newCacheWithFrames(t, map[uint64][]byte{1: frame})

	path := filepath.Join(t.TempDir(), "out.pcap")

	n, err := Export(path, []uint64{1}, c)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 24+16+len(frame))

	hdr := data[:24]
	assert.Equal(t, uint32(0xA1B2C3D4), binary.LittleEndian.Uint32(hdr[0:4]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(hdr[4:6]))
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(hdr[6:8]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(hdr[8:12]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(hdr[12:16]))
	assert.Equal(t, uint32(65535), binary.LittleEndian.Uint32(hdr[16:20]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(hdr[20:24]))

	record := data[24:]
	tsSec := binary.LittleEndian.Uint32(record[0:4])
	tsUsec := binary.LittleEndian.Uint32(record[4:8])
	capturedLen := binary.LittleEndian.Uint32(record[8:12])
	origLen := binary.LittleEndian.Uint32(record[12:16])

	assert.Equal(t, uint32(1), tsSec)
	assert.Equal(t, uint32(0), tsUsec)
	assert.Equal(t, uint32(len(frame)), capturedLen)
	assert.Equal(t, uint32(len(frame)), origLen)
	assert.Equal(t, frame, record[16:16+len(frame)])
}

func TestExport_OutputOrderedByIDRegardlessOfInputOrder(t *testing.T) {
	frame := validTCPFrame(t)

	c := newCacheWithFrames(t, map[uint64][]byte{
		1: frame,
		2: frame,
		3: frame,
	})

	path := filepath.Join(t.TempDir(), "out.pcap")

	n, err := Export(path, []uint64{3, 1, 2}, c)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	recordSize := 16 + len(frame)
	offset := 24

	var gotSeconds []uint32
	for i := 0; i < 3; i++ {
		record := data[offset : offset+recordSize]
		gotSeconds = append(gotSeconds, binary.LittleEndian.Uint32(record[0:4]))
		offset += recordSize
	}

	assert.Equal(t, []uint32{1, 2, 3}, gotSeconds)
}

func TestExportGzip_ProducesGzippedOutput(t *testing.T) {
	frame := validTCPFrame(t)
	c := newCacheWithFrames(t, map[uint64][]byte{1: frame})

	path := filepath.Join(t.TempDir(), "out.pcap.gz")

	n, err := ExportGzip(path, []uint64{1}, c)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gr, err := pgzip.NewReader(f)
	require.NoError(t, err)
	defer gr.Close()

	hdr := make([]byte, 24)
	_, err = io.ReadFull(gr, hdr)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xA1B2C3D4), binary.LittleEndian.Uint32(hdr[0:4]))
}
