package gnet

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
)

func tcpSegment(srcPort, dstPort uint16, headerLen int, payload []byte) []byte {
	h := make([]byte, headerLen)
	binary.BigEndian.PutUint16(h[0:2], srcPort)
	binary.BigEndian.PutUint16(h[2:4], dstPort)
	h[12] = byte(headerLen/4) << 4
	return append(h, payload...)
}

func ipv4Frame(src, dst IPAddr, srcPort, dstPort uint16, tcpHeaderLen int, payload []byte) []byte {
	frame := make([]byte, 14+20)
	frame[12], frame[13] = 0x08, 0x00
	copy(frame[14+12:], src[:4])
	copy(frame[14+16:], dst[:4])
	return append(frame, tcpSegment(srcPort, dstPort, tcpHeaderLen, payload)...)
}

func ipv6Frame(src, dst IPAddr, srcPort, dstPort uint16, tcpHeaderLen int, payload []byte) []byte {
	frame := make([]byte, 14+40)
	frame[12], frame[13] = 0x86, 0xdd
	copy(frame[14+8:], src[:])
	copy(frame[14+24:], dst[:])
	return append(frame, tcpSegment(srcPort, dstPort, tcpHeaderLen, payload)...)
}

func TestDecodeFrameIPv4(t *testing.T) {
	src := ip4(10, 0, 0, 1)
	dst := ip4(10, 0, 0, 2)
	payload := []byte("hello")

	var info FrameInfo
	got, err := DecodeFrame(ipv4Frame(src, dst, 50000, 2135, 20, payload), &info)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
	if want := (Endpoint{IP: src, Port: 50000}); info.Source != want {
		t.Errorf("source = %v, want %v", info.Source, want)
	}
	if want := (Endpoint{IP: dst, Port: 2135}); info.Destination != want {
		t.Errorf("destination = %v, want %v", info.Destination, want)
	}
}

func TestDecodeFrameIPv6(t *testing.T) {
	src := IPAddr{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	dst := IPAddr{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2}
	payload := []byte("world")

	var info FrameInfo
	got, err := DecodeFrame(ipv6Frame(src, dst, 50000, 2135, 20, payload), &info)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
	if info.Source.IP != src || info.Destination.IP != dst {
		t.Errorf("endpoints = %v -> %v", info.Source, info.Destination)
	}
	if !info.Source.IP.IsIPv6() {
		t.Error("source not detected as IPv6")
	}
}

func TestDecodeFrameTCPOptions(t *testing.T) {
	payload := []byte("payload after options")

	var info FrameInfo
	got, err := DecodeFrame(ipv4Frame(ip4(10, 0, 0, 1), ip4(10, 0, 0, 2), 1, 2, 32, payload), &info)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestDecodeFrameEmptyPayload(t *testing.T) {
	var info FrameInfo
	got, err := DecodeFrame(ipv4Frame(ip4(10, 0, 0, 1), ip4(10, 0, 0, 2), 1, 2, 20, nil), &info)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("payload = %q, want empty", got)
	}
}

func TestDecodeFrameNotIP(t *testing.T) {
	frame := make([]byte, 64)
	frame[12], frame[13] = 0x08, 0x06 // ARP

	var info FrameInfo
	_, err := DecodeFrame(frame, &info)
	if !errors.Is(err, ErrNotIP) {
		t.Errorf("err = %v, want ErrNotIP", err)
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	testCases := []struct {
		name  string
		frame []byte
	}{
		{"shorter than ethernet", make([]byte, 10)},
		{"no room for ip header", ipv4Frame(ip4(1, 2, 3, 4), ip4(5, 6, 7, 8), 1, 2, 20, nil)[:20]},
		{"no room for tcp header", ipv4Frame(ip4(1, 2, 3, 4), ip4(5, 6, 7, 8), 1, 2, 20, nil)[:40]},
		{"data offset below minimum", ipv4Frame(ip4(1, 2, 3, 4), ip4(5, 6, 7, 8), 1, 2, 16, nil)},
	}

	for _, tc := range testCases {
		var info FrameInfo
		if _, err := DecodeFrame(tc.frame, &info); err == nil || errors.Is(err, ErrNotIP) {
			t.Errorf("[%s] err = %v, want malformed-frame error", tc.name, err)
		}
	}
}

func TestDecodeFrameDataOffsetPastEnd(t *testing.T) {
	frame := ipv4Frame(ip4(1, 2, 3, 4), ip4(5, 6, 7, 8), 1, 2, 20, nil)
	frame[14+20+12] = 0xf0 // claims 60 bytes of TCP header

	var info FrameInfo
	if _, err := DecodeFrame(frame, &info); err == nil {
		t.Error("expected error for data offset past frame end")
	}
}
