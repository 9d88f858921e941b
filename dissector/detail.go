package dissector

import (
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/pallab-js/r-wire/types"
)

// Detail parses raw into a full layered PacketDetail. timestampNS is
// threaded through to the embedded Summary rather than sampled from the
// system clock — the original implementation read time.Now() here, which
// spec.md §9 flags as an open question and recommends against; callers
// (the session package) pass the cached capture timestamp instead.
func Detail(raw []byte, id uint64, timestampNS int64) (types.PacketDetail, bool) {
	eth := &layers.Ethernet{}
	if err := eth.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return types.PacketDetail{}, false
	}

	layerList := []types.ProtocolLayer{ethernetLayer(eth)}

	// An ethertype that claims IPv4/IPv6 but whose inner header fails to
	// decode is a malformed/truncated frame, not a bare-Ethernet one; it is
	// rejected outright (ok=false) rather than degraded to an
	// Ethernet-only layer tree, matching Summary's admission behavior.
	switch eth.EthernetType {
	case layers.EthernetTypeIPv4:
		ip4 := &layers.IPv4{}
		if err := ip4.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err != nil {
			return types.PacketDetail{}, false
		}

		layerList = append(layerList, ipv4Layer(ip4))
		layerList = append(layerList, transportLayersIPv4(ip4)...)
	case layers.EthernetTypeIPv6:
		ip6 := &layers.IPv6{}
		if err := ip6.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err != nil {
			return types.PacketDetail{}, false
		}

		layerList = append(layerList, ipv6Layer(ip6))
		layerList = append(layerList, transportLayersIPv6(ip6)...)
	case layers.EthernetTypeARP:
		layerList = append(layerList, types.ProtocolLayer{
			Name: "Address Resolution Protocol",
			Fields: []types.FieldPair{
				types.Field("Payload Length", fmt.Sprintf("%d bytes", len(eth.Payload))),
			},
		})
	}

	summary, ok := Summary(raw, id, timestampNS)
	if !ok {
		return types.PacketDetail{}, false
	}

	return types.PacketDetail{
		Summary:  summary,
		Layers:   layerList,
		RawBytes: raw,
	}, true
}

func ethernetLayer(eth *layers.Ethernet) types.ProtocolLayer {
	return types.ProtocolLayer{
		Name: "Ethernet",
		Fields: []types.FieldPair{
			types.Field("Destination", eth.DstMAC.String()),
			types.Field("Source", eth.SrcMAC.String()),
			types.Field("Type", fmt.Sprintf("0x%04x", uint16(eth.EthernetType))),
		},
	}
}

func ipv4Layer(ip4 *layers.IPv4) types.ProtocolLayer {
	return types.ProtocolLayer{
		Name: "Internet Protocol Version 4",
		Fields: []types.FieldPair{
			types.Field("Version", "4"),
			types.Field("Header Length", fmt.Sprintf("%d bytes", int(ip4.IHL)*4)),
			types.Field("Total Length", fmt.Sprintf("%d bytes", ip4.Length)),
			types.Field("Identification", fmt.Sprintf("0x%04x", ip4.Id)),
			types.Field("Flags", fmt.Sprintf("0x%02x", uint8(ip4.Flags))),
			types.Field("TTL", fmt.Sprintf("%d", ip4.TTL)),
			types.Field("Protocol", fmt.Sprintf("%d (%s)", uint8(ip4.Protocol), ip4.Protocol)),
			types.Field("Source", ip4.SrcIP.String()),
			types.Field("Destination", ip4.DstIP.String()),
		},
	}
}

func ipv6Layer(ip6 *layers.IPv6) types.ProtocolLayer {
	return types.ProtocolLayer{
		Name: "Internet Protocol Version 6",
		Fields: []types.FieldPair{
			types.Field("Version", "6"),
			types.Field("Traffic Class", fmt.Sprintf("0x%02x", ip6.TrafficClass)),
			types.Field("Flow Label", fmt.Sprintf("0x%05x", ip6.FlowLabel)),
			types.Field("Payload Length", fmt.Sprintf("%d bytes", ip6.Length)),
			types.Field("Next Header", fmt.Sprintf("%d (%s)", uint8(ip6.NextHeader), ip6.NextHeader)),
			types.Field("Hop Limit", fmt.Sprintf("%d", ip6.HopLimit)),
			types.Field("Source", ip6.SrcIP.String()),
			types.Field("Destination", ip6.DstIP.String()),
		},
	}
}

func transportLayersIPv4(ip4 *layers.IPv4) []types.ProtocolLayer {
	switch ip4.Protocol {
	case layers.IPProtocolTCP:
		tcp := &layers.TCP{}
		if err := tcp.DecodeFromBytes(ip4.Payload, gopacket.NilDecodeFeedback); err != nil {
			return nil
		}

		out := []types.ProtocolLayer{tcpLayer(tcp)}
		if len(tcp.Payload) > 0 {
			out = append(out, applicationLayer(uint16(tcp.SrcPort), uint16(tcp.DstPort), tcp.Payload, true))
		}

		return out
	case layers.IPProtocolUDP:
		udp := &layers.UDP{}
		if err := udp.DecodeFromBytes(ip4.Payload, gopacket.NilDecodeFeedback); err != nil {
			return nil
		}

		out := []types.ProtocolLayer{udpLayer(udp)}
		if len(udp.Payload) > 0 {
			out = append(out, applicationLayer(uint16(udp.SrcPort), uint16(udp.DstPort), udp.Payload, false))
		}

		return out
	case layers.IPProtocolICMPv4:
		return []types.ProtocolLayer{{
			Name: "Internet Control Message Protocol",
			Fields: []types.FieldPair{
				types.Field("Payload Length", fmt.Sprintf("%d bytes", len(ip4.Payload))),
			},
		}}
	default:
		return nil
	}
}

// transportLayersIPv6 adds an ICMPv6 detail layer alongside TCP/UDP; the
// original implementation computes the ICMPv6 protocol label for the
// summary view but never emits a matching detail layer (spec.md §9 notes
// both outcomes are acceptable). Adding it here removes that gap.
func transportLayersIPv6(ip6 *layers.IPv6) []types.ProtocolLayer {
	switch ip6.NextHeader {
	case layers.IPProtocolTCP:
		tcp := &layers.TCP{}
		if err := tcp.DecodeFromBytes(ip6.Payload, gopacket.NilDecodeFeedback); err != nil {
			return nil
		}

		out := []types.ProtocolLayer{tcpLayer(tcp)}
		if len(tcp.Payload) > 0 {
			out = append(out, applicationLayer(uint16(tcp.SrcPort), uint16(tcp.DstPort), tcp.Payload, true))
		}

		return out
	case layers.IPProtocolUDP:
		udp := &layers.UDP{}
		if err := udp.DecodeFromBytes(ip6.Payload, gopacket.NilDecodeFeedback); err != nil {
			return nil
		}

		out := []types.ProtocolLayer{udpLayer(udp)}
		if len(udp.Payload) > 0 {
			out = append(out, applicationLayer(uint16(udp.SrcPort), uint16(udp.DstPort), udp.Payload, false))
		}

		return out
	case layers.IPProtocolICMPv6:
		return []types.ProtocolLayer{{
			Name: "Internet Control Message Protocol v6",
			Fields: []types.FieldPair{
				types.Field("Payload Length", fmt.Sprintf("%d bytes", len(ip6.Payload))),
			},
		}}
	default:
		return nil
	}
}

func tcpLayer(tcp *layers.TCP) types.ProtocolLayer {
	return types.ProtocolLayer{
		Name: "Transmission Control Protocol",
		Fields: []types.FieldPair{
			types.Field("Source Port", fmt.Sprintf("%d", tcp.SrcPort)),
			types.Field("Destination Port", fmt.Sprintf("%d", tcp.DstPort)),
			types.Field("Sequence Number", fmt.Sprintf("%d", tcp.Seq)),
			types.Field("Acknowledgment Number", fmt.Sprintf("%d", tcp.Ack)),
			types.Field("Data Offset", fmt.Sprintf("%d bytes", int(tcp.DataOffset)*4)),
			types.Field("Flags", fmt.Sprintf("0x%02x", tcpFlagsByte(tcp))),
			types.Field("Window Size", fmt.Sprintf("%d", tcp.Window)),
		},
	}
}

// tcpFlagsByte packs the classic 8-bit TCP control-bits field from
// gopacket's individually-decoded flag booleans, since layers.TCP does not
// expose the combined byte directly.
func tcpFlagsByte(tcp *layers.TCP) byte {
	var b byte

	if tcp.CWR {
		b |= 0x80
	}
	if tcp.ECE {
		b |= 0x40
	}
	if tcp.URG {
		b |= 0x20
	}
	if tcp.ACK {
		b |= 0x10
	}
	if tcp.PSH {
		b |= 0x08
	}
	if tcp.RST {
		b |= 0x04
	}
	if tcp.SYN {
		b |= 0x02
	}
	if tcp.FIN {
		b |= 0x01
	}

	return b
}

func udpLayer(udp *layers.UDP) types.ProtocolLayer {
	return types.ProtocolLayer{
		Name: "User Datagram Protocol",
		Fields: []types.FieldPair{
			types.Field("Source Port", fmt.Sprintf("%d", udp.SrcPort)),
			types.Field("Destination Port", fmt.Sprintf("%d", udp.DstPort)),
			types.Field("Length", fmt.Sprintf("%d bytes", udp.Length)),
			types.Field("Checksum", fmt.Sprintf("0x%04x", udp.Checksum)),
		},
	}
}

const applicationPeekBytes = 100

// applicationLayer classifies the application-layer payload of a TCP or UDP
// segment: DNS by port, then HTTP/HTTPS by port+prefix (TCP only), falling
// back to a generic "Application Data" layer.
func applicationLayer(srcPort, dstPort uint16, payload []byte, isTCP bool) types.ProtocolLayer {
	if srcPort == 53 || dstPort == 53 {
		port := "53 (Query)"
		if srcPort == 53 {
			port = "53 (Response)"
		}

		return types.ProtocolLayer{
			Name: "Domain Name System",
			Fields: []types.FieldPair{
				types.Field("Port", port),
				types.Field("Payload Length", fmt.Sprintf("%d bytes", len(payload))),
			},
		}
	}

	if isTCP && (srcPort == 80 || dstPort == 80 || srcPort == 443 || dstPort == 443) {
		if layer, ok := httpLayer(srcPort, dstPort, payload); ok {
			return layer
		}
	}

	return types.ProtocolLayer{
		Name: "Application Data",
		Fields: []types.FieldPair{
			types.Field("Payload Length", fmt.Sprintf("%d bytes", len(payload))),
		},
	}
}

func httpLayer(srcPort, dstPort uint16, payload []byte) (types.ProtocolLayer, bool) {
	peekLen := len(payload)
	if peekLen > applicationPeekBytes {
		peekLen = applicationPeekBytes
	}

	text := string(payload[:peekLen])

	name := "Hypertext Transfer Protocol"
	if srcPort == 443 || dstPort == 443 {
		name = "Hypertext Transfer Protocol Secure"
	}

	var fields []types.FieldPair

	switch {
	case strings.HasPrefix(text, "GET"):
		fields = append(fields, types.Field("Method", "GET"))
	case strings.HasPrefix(text, "POST"):
		fields = append(fields, types.Field("Method", "POST"))
	case strings.HasPrefix(text, "PUT"):
		fields = append(fields, types.Field("Method", "PUT"))
	case strings.HasPrefix(text, "DELETE"):
		fields = append(fields, types.Field("Method", "DELETE"))
	case strings.HasPrefix(text, "HTTP/"):
		fields = append(fields, types.Field("Type", "Response"))
	default:
		return types.ProtocolLayer{}, false
	}

	fields = append(fields, types.Field("Payload Length", fmt.Sprintf("%d bytes", len(payload))))

	return types.ProtocolLayer{Name: name, Fields: fields}, true
}
