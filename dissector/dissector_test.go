package dissector

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pallab-js/r-wire/types"
)

func mustHex(t *testing.T, parts ...string) []byte {
	t.Helper()

	raw, err := hex.DecodeString(strings.Join(parts, ""))
	require.NoError(t, err)

	return raw
}

// S1 — IPv4/TCP summary.
func TestSummary_IPv4TCP(t *testing.T) {
	eth := mustHex(t, "001122334455", "667788990aab", "0800")
	ip4 := mustHex(t, "4500003c000100004006", "0000", "c0a80101", "c0a80102")
	tcp := mustHex(t, "d431", "0050", "00000000", "00000000", "5002", "2000", "00000000", "00")

	frame := append(append(append([]byte{}, eth...), ip4...), tcp...)

	summary, ok := Summary(frame, 1, 1000)
	require.True(t, ok)
	assert.Equal(t, uint64(1), summary.ID)
	assert.Equal(t, types.ProtoTCP, summary.Protocol)
	assert.Equal(t, "192.168.1.1", summary.SourceAddr)
	assert.Equal(t, "192.168.1.2", summary.DestAddr)
	assert.Equal(t, uint32(len(frame)), summary.Length)
	assert.Contains(t, summary.Info, "192.168.1.1")
	assert.Contains(t, summary.Info, "192.168.1.2")
	assert.Contains(t, summary.Info, "[80]")
}

// S2 — IPv4/UDP DNS summary.
func TestSummary_IPv4UDP_DNS(t *testing.T) {
	eth := mustHex(t, "001122334455", "667788990aab", "0800")
	ip4 := mustHex(t, "4500001c000100004011", "0000", "c0a80101", "c0a80102")
	udp := mustHex(t, "c350", "0035", "000c", "0000")

	frame := append(append(append([]byte{}, eth...), ip4...), udp...)

	summary, ok := Summary(frame, 2, 2000)
	require.True(t, ok)
	assert.Equal(t, types.ProtoUDP, summary.Protocol)
	assert.Contains(t, summary.Info, "[53]")
}

// S3 — ARP summary.
func TestSummary_ARP(t *testing.T) {
	eth := mustHex(t, "ffffffffffff", "667788990aab", "0806")
	arpPayload := make([]byte, 28)

	frame := append(append([]byte{}, eth...), arpPayload...)

	summary, ok := Summary(frame, 3, 3000)
	require.True(t, ok)
	assert.Equal(t, types.ProtoARP, summary.Protocol)
	assert.Equal(t, types.ProtoARP, summary.Info)
	assert.Equal(t, "66:77:88:99:0a:ab", summary.SourceAddr)
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", summary.DestAddr)
}

// S4 — short frame is rejected.
func TestSummary_ShortFrame(t *testing.T) {
	_, ok := Summary([]byte{0x00, 0x01, 0x02}, 4, 0)
	assert.False(t, ok)

	_, ok = Detail([]byte{0x00, 0x01, 0x02}, 4, 0)
	assert.False(t, ok)
}

// A truncated/malformed inner header under an IPv4 ethertype must drop the
// whole frame (ok=false), not degrade to a MAC-address-only summary —
// matching original_source/src-tauri/src/dissector.rs's parse_summary,
// where the inner header's decode failure propagates out of the whole
// function rather than falling back to a partial result.
func TestSummary_MalformedIPv4HeaderIsDropped(t *testing.T) {
	eth := mustHex(t, "001122334455", "667788990aab", "0800")
	truncatedIP4 := mustHex(t, "45000014") // ethertype says IPv4, payload far too short to be one

	frame := append(append([]byte{}, eth...), truncatedIP4...)

	_, ok := Summary(frame, 1, 1000)
	assert.False(t, ok)

	_, ok = Detail(frame, 1, 1000)
	assert.False(t, ok)
}

func TestSummary_MalformedIPv6HeaderIsDropped(t *testing.T) {
	eth := mustHex(t, "001122334455", "667788990aab", "86dd")
	truncatedIP6 := mustHex(t, "60000000") // ethertype says IPv6, payload far too short to be one

	frame := append(append([]byte{}, eth...), truncatedIP6...)

	_, ok := Summary(frame, 1, 1000)
	assert.False(t, ok)

	_, ok = Detail(frame, 1, 1000)
	assert.False(t, ok)
}

// S5 — detail layer count/order for the S1 frame.
func TestDetail_IPv4TCP_LayerOrder(t *testing.T) {
	eth := mustHex(t, "001122334455", "667788990aab", "0800")
	ip4 := mustHex(t, "4500003c000100004006", "0000", "c0a80101", "c0a80102")
	tcp := mustHex(t, "d431", "0050", "00000000", "00000000", "5002", "2000", "00000000", "00")

	frame := append(append(append([]byte{}, eth...), ip4...), tcp...)

	detail, ok := Detail(frame, 1, 1000)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(detail.Layers), 2)
	assert.Equal(t, "Ethernet", detail.Layers[0].Name)
	assert.Contains(t, detail.Layers[1].Name, "Internet Protocol")
	assert.Equal(t, frame, detail.RawBytes)
	assert.Equal(t, int64(1000), detail.Summary.TimestampNS)
}

func TestDetail_TCPLayerFields(t *testing.T) {
	eth := mustHex(t, "001122334455", "667788990aab", "0800")
	ip4 := mustHex(t, "4500003c000100004006", "0000", "c0a80101", "c0a80102")
	tcp := mustHex(t, "d431", "0050", "00000000", "00000000", "5002", "2000", "00000000")

	frame := append(append(append([]byte{}, eth...), ip4...), tcp...)

	detail, ok := Detail(frame, 1, 1000)
	require.True(t, ok)
	require.Len(t, detail.Layers, 3)
	assert.Equal(t, "Transmission Control Protocol", detail.Layers[2].Name)

	fields := map[string]string{}
	for _, f := range detail.Layers[2].Fields {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, "54321", fields["Source Port"])
	assert.Equal(t, "80", fields["Destination Port"])
	assert.Equal(t, "20 bytes", fields["Data Offset"])
}

// IPv6 asymmetry: no port suffix even for TCP/UDP, per spec.md §9.
func TestSummary_IPv6_NoPortSuffix(t *testing.T) {
	eth := mustHex(t, "001122334455", "667788990aab", "86dd")

	// Build a minimal IPv6 header by hand: version(4)=6, TC=0, flow=0,
	// payload length = 20 (TCP header only), next header = 6 (TCP), hop
	// limit = 64, then src/dst addresses.
	hdr := make([]byte, 40)
	hdr[0] = 0x60
	hdr[4] = 0x00
	hdr[5] = 0x14 // payload length = 20
	hdr[6] = 0x06 // next header TCP
	hdr[7] = 64   // hop limit
	copy(hdr[8:24], []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1})
	copy(hdr[24:40], []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2})

	tcp := mustHex(t, "d431", "0050", "00000000", "00000000", "5002", "2000", "00000000", "00")

	frame := append(append(append([]byte{}, eth...), hdr...), tcp...)

	summary, ok := Summary(frame, 5, 5000)
	require.True(t, ok)
	assert.Equal(t, types.ProtoTCP, summary.Protocol)
	assert.NotContains(t, summary.Info, "[80]")
}

func TestApplicationLayer_DNS(t *testing.T) {
	layer := applicationLayer(53, 40000, []byte{1, 2, 3}, false)
	assert.Equal(t, "Domain Name System", layer.Name)

	found := false
	for _, f := range layer.Fields {
		if f.Key == "Port" {
			assert.Equal(t, "53 (Response)", f.Value)
			found = true
		}
	}
	assert.True(t, found)
}

func TestApplicationLayer_HTTP(t *testing.T) {
	layer := applicationLayer(40000, 80, []byte("GET / HTTP/1.1\r\n"), true)
	assert.Equal(t, "Hypertext Transfer Protocol", layer.Name)

	found := false
	for _, f := range layer.Fields {
		if f.Key == "Method" {
			assert.Equal(t, "GET", f.Value)
			found = true
		}
	}
	assert.True(t, found)
}

func TestApplicationLayer_HTTPS_FallsThroughToGeneric(t *testing.T) {
	// Real TLS application data is not plaintext GET/POST/etc, so the 443
	// branch almost never matches and falls back to Application Data —
	// preserved per spec.md §9's accepted asymmetry.
	layer := applicationLayer(40000, 443, []byte{0x16, 0x03, 0x01, 0x00, 0x05}, true)
	assert.Equal(t, "Application Data", layer.Name)
}

func TestApplicationLayer_Fallback(t *testing.T) {
	layer := applicationLayer(12345, 54321, []byte{1, 2, 3, 4}, true)
	assert.Equal(t, "Application Data", layer.Name)
}

func TestSummary_Purity(t *testing.T) {
	eth := mustHex(t, "001122334455", "667788990aab", "0800")
	ip4 := mustHex(t, "4500003c000100004006", "0000", "c0a80101", "c0a80102")
	tcp := mustHex(t, "d431", "0050", "00000000", "00000000", "5002", "2000", "00000000", "00")

	frame := append(append(append([]byte{}, eth...), ip4...), tcp...)

	a, okA := Summary(frame, 1, 1000)
	b, okB := Summary(frame, 1, 1000)
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, a, b)
}
