package gnet

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

const (
	// The frame as captured starts at the destination MAC, i.e. the
	// ethertype sits at offset 12-13.
	ethernetHeaderLen = 14

	// No IPv4 options and no IPv6 extension headers: fixed sizes.
	ipv4HeaderLen = 20
	ipv6HeaderLen = 40

	tcpHeaderMinLen = 20

	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86dd
)

// ErrNotIP marks frames whose ethertype is neither IPv4 nor IPv6.
// Such frames are skipped, not treated as capture corruption.
var ErrNotIP = stderrors.New("not an IPv4 or IPv6 frame")

// DecodeFrame parses the Ethernet, IP and TCP headers of a raw
// captured frame at fixed offsets, fills the endpoints of info, and
// returns the TCP payload as a subslice of frame. An empty payload
// (pure ACKs, keep-alives) is returned as a zero-length slice.
//
// Frames with IP options or extension headers are not understood;
// any length that does not add up is an error, since a malformed
// capture would otherwise yield silently wrong statistics.
func DecodeFrame(frame []byte, info *FrameInfo) ([]byte, error) {
	if len(frame) < ethernetHeaderLen {
		return nil, errors.Errorf("frame of %d bytes is shorter than an Ethernet header", len(frame))
	}

	etherType := uint16(frame[12])<<8 | uint16(frame[13])

	var ipHeaderLen int
	switch etherType {
	case etherTypeIPv4:
		ipHeaderLen = ipv4HeaderLen
	case etherTypeIPv6:
		ipHeaderLen = ipv6HeaderLen
	default:
		return nil, ErrNotIP
	}

	if len(frame) < ethernetHeaderLen+ipHeaderLen {
		return nil, errors.Errorf("frame of %d bytes has no room for the IP header", len(frame))
	}
	if len(frame) < ethernetHeaderLen+ipHeaderLen+tcpHeaderMinLen {
		return nil, errors.Errorf("frame of %d bytes has no room for the TCP header", len(frame))
	}

	ipHeader := frame[ethernetHeaderLen:]
	if ipHeaderLen == ipv4HeaderLen {
		copy(info.Source.IP[:4], ipHeader[12:16])
		copy(info.Destination.IP[:4], ipHeader[16:20])
	} else {
		copy(info.Source.IP[:], ipHeader[8:24])
		copy(info.Destination.IP[:], ipHeader[24:40])
	}

	tcpHeader := frame[ethernetHeaderLen+ipHeaderLen:]
	info.Source.Port = uint16(tcpHeader[0])<<8 | uint16(tcpHeader[1])
	info.Destination.Port = uint16(tcpHeader[2])<<8 | uint16(tcpHeader[3])

	tcpHeaderLen := int(tcpHeader[12]>>4) * 4
	if tcpHeaderLen < tcpHeaderMinLen || tcpHeaderLen > len(tcpHeader) {
		return nil, errors.Errorf("TCP data offset %d does not fit the frame", tcpHeaderLen)
	}

	return tcpHeader[tcpHeaderLen:], nil
}
