// Package dissector is a pure, two-tier parser over raw link-layer frame
// bytes: Summary produces the one-line list-view representation, Detail
// produces the full layered field tree. Neither function performs I/O or
// touches shared state — both are total functions of their inputs (modulo
// the timestamp passed in by the caller).
package dissector

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"go.uber.org/zap"

	"github.com/pallab-js/r-wire/logging"
	"github.com/pallab-js/r-wire/types"
)

var debugLog = logging.New("dissector")

// Summary parses raw into a PacketSummary. It returns ok=false if Ethernet
// framing cannot be established (too-short buffer), or if the ethertype
// claims IPv4/IPv6 and that header fails to decode — the caller (the
// capture pipeline's consumer, or the exporter's re-validation pass) must
// treat that as "drop this frame", never as an error.
func Summary(raw []byte, id uint64, timestampNS int64) (summary types.PacketSummary, ok bool) {
	eth := &layers.Ethernet{}
	if err := eth.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		if debugDumps {
			debugLog.Debug("summary: failed to establish ethernet framing",
				zap.Error(err), zap.String("raw", spew.Sdump(raw)))
		}

		return types.PacketSummary{}, false
	}

	srcAddr, dstAddr, protocol, info, ok := summarizeNetworkLayer(eth)
	if !ok {
		if debugDumps {
			debugLog.Debug("summary: ethertype claimed a network layer that failed to decode",
				zap.String("ethertype", eth.EthernetType.String()), zap.String("raw", spew.Sdump(raw)))
		}

		return types.PacketSummary{}, false
	}

	return types.PacketSummary{
		ID:          id,
		TimestampNS: timestampNS,
		SourceAddr:  srcAddr,
		DestAddr:    dstAddr,
		Protocol:    protocol,
		Length:      uint32(len(raw)),
		Info:        info,
	}, true
}

// summarizeNetworkLayer reports ok=false when the ethertype claims IPv4 or
// IPv6 but the inner header fails to decode (a truncated or malformed
// frame) — matching original_source/src-tauri/src/dissector.rs's
// parse_summary, where the `?` on Ipv4Packet::new/Ipv6Packet::new propagates
// failure and drops the whole frame rather than falling back to a
// MAC-address-only summary.
func summarizeNetworkLayer(eth *layers.Ethernet) (srcAddr, dstAddr, protocol, info string, ok bool) {
	switch eth.EthernetType {
	case layers.EthernetTypeIPv4:
		ip4 := &layers.IPv4{}
		if err := ip4.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err != nil {
			return "", "", "", "", false
		}

		src, dst, proto, i := summarizeIPv4(ip4)

		return src, dst, proto, i, true
	case layers.EthernetTypeIPv6:
		ip6 := &layers.IPv6{}
		if err := ip6.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err != nil {
			return "", "", "", "", false
		}

		src, dst, proto, i := summarizeIPv6(ip6)

		return src, dst, proto, i, true
	case layers.EthernetTypeARP:
		return eth.SrcMAC.String(), eth.DstMAC.String(), types.ProtoARP, types.ProtoARP, true
	default:
		return eth.SrcMAC.String(), eth.DstMAC.String(), types.ProtoUnknown, types.ProtoUnknown, true
	}
}

func summarizeIPv4(ip4 *layers.IPv4) (srcAddr, dstAddr, protocol, info string) {
	src, dst := ip4.SrcIP.String(), ip4.DstIP.String()

	switch ip4.Protocol {
	case layers.IPProtocolTCP:
		if tcp := (&layers.TCP{}); tcp.DecodeFromBytes(ip4.Payload, gopacket.NilDecodeFeedback) == nil {
			return src, dst, types.ProtoTCP, fmt.Sprintf("%s → %s [%d]", src, dst, tcp.DstPort)
		}

		return src, dst, types.ProtoTCP, fmt.Sprintf("%s → %s", src, dst)
	case layers.IPProtocolUDP:
		if udp := (&layers.UDP{}); udp.DecodeFromBytes(ip4.Payload, gopacket.NilDecodeFeedback) == nil {
			return src, dst, types.ProtoUDP, fmt.Sprintf("%s → %s [%d]", src, dst, udp.DstPort)
		}

		return src, dst, types.ProtoUDP, fmt.Sprintf("%s → %s", src, dst)
	case layers.IPProtocolICMPv4:
		return src, dst, types.ProtoICMP, fmt.Sprintf("%s → %s", src, dst)
	default:
		return src, dst, types.ProtoIPv4, fmt.Sprintf("%s → %s", src, dst)
	}
}

// summarizeIPv6 intentionally omits the destination-port suffix even for
// TCP/UDP. This asymmetry with summarizeIPv4 is preserved verbatim from the
// original implementation rather than "fixed" — see DESIGN.md.
func summarizeIPv6(ip6 *layers.IPv6) (srcAddr, dstAddr, protocol, info string) {
	src, dst := ip6.SrcIP.String(), ip6.DstIP.String()
	info = fmt.Sprintf("%s → %s", src, dst)

	switch ip6.NextHeader {
	case layers.IPProtocolTCP:
		return src, dst, types.ProtoTCP, info
	case layers.IPProtocolUDP:
		return src, dst, types.ProtoUDP, info
	case layers.IPProtocolICMPv6:
		return src, dst, types.ProtoICMPv6, info
	default:
		return src, dst, types.ProtoIPv6, info
	}
}

var debugDumps bool

// SetDebug enables spew dumps of frames that fail Ethernet framing. Off by
// default; callers turn it on when config.Config.Debug is set.
func SetDebug(enabled bool) {
	debugDumps = enabled
}
