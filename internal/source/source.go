// Package source turns capture handles into a stream of raw UDP
// payloads with endpoints and timestamps.
package source

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/gameobs/photometer/internal/core"
)

// Source yields UDP payloads until the capture ends. Next returns
// core.ErrSourceClosed when the stream is exhausted or closed.
type Source interface {
	Next() (core.RawPacket, error)
	Close() error
}

type pcapSource struct {
	handle *pcap.Handle
	live   bool
}

// OpenPcap replays a capture file. Timestamps come from the file so
// replay drives session timers exactly as the live capture did.
func OpenPcap(path, bpf string) (Source, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	if err := applyFilter(handle, bpf); err != nil {
		handle.Close()
		return nil, err
	}
	return &pcapSource{handle: handle}, nil
}

// OpenLive captures from a network interface in promiscuous mode with
// a one second poll timeout.
func OpenLive(iface string, snaplen int, bpf string) (Source, error) {
	if snaplen <= 0 {
		snaplen = 65535
	}
	handle, err := pcap.OpenLive(iface, int32(snaplen), true, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to open interface %s: %w", iface, err)
	}
	if err := applyFilter(handle, bpf); err != nil {
		handle.Close()
		return nil, err
	}
	return &pcapSource{handle: handle, live: true}, nil
}

func applyFilter(handle *pcap.Handle, bpf string) error {
	if bpf == "" {
		return nil
	}
	if err := handle.SetBPFFilter(bpf); err != nil {
		return fmt.Errorf("failed to set BPF filter %q: %w", bpf, err)
	}
	return nil
}

func (s *pcapSource) Next() (core.RawPacket, error) {
	for {
		data, ci, err := s.handle.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return core.RawPacket{}, core.ErrSourceClosed
			}
			if errors.Is(err, pcap.NextErrorTimeoutExpired) {
				continue
			}
			return core.RawPacket{}, fmt.Errorf("failed to read packet: %w", err)
		}
		pkt := gopacket.NewPacket(data, s.handle.LinkType(), gopacket.NoCopy)
		raw, err := FromPacket(pkt)
		if err != nil {
			// Non-UDP traffic is expected noise under a loose filter.
			continue
		}
		raw.Timestamp = ci.Timestamp
		return raw, nil
	}
}

func (s *pcapSource) Close() error {
	s.handle.Close()
	return nil
}

// FromPacket extracts the UDP payload and endpoints from a decoded
// link-layer packet.
func FromPacket(pkt gopacket.Packet) (core.RawPacket, error) {
	ipLayer, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok || ipLayer == nil {
		return core.RawPacket{}, core.ErrNotUDP
	}
	udpLayer, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok || udpLayer == nil {
		return core.RawPacket{}, core.ErrNotUDP
	}
	src, ok := netip.AddrFromSlice(ipLayer.SrcIP.To4())
	if !ok {
		return core.RawPacket{}, core.ErrMalformedPacket
	}
	dst, ok := netip.AddrFromSlice(ipLayer.DstIP.To4())
	if !ok {
		return core.RawPacket{}, core.ErrMalformedPacket
	}
	raw := core.RawPacket{
		Src:     core.Endpoint{Addr: src, Port: uint16(udpLayer.SrcPort)},
		Dst:     core.Endpoint{Addr: dst, Port: uint16(udpLayer.DstPort)},
		Payload: udpLayer.Payload,
	}
	if meta := pkt.Metadata(); meta != nil {
		raw.Timestamp = meta.Timestamp
	}
	return raw, nil
}
