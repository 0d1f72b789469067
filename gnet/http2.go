package gnet

const (
	// RFC 7540 frame header: 24-bit length, type, flags, stream id.
	http2FrameHeaderLen = 9

	frameTypeData    = 0x00
	frameTypeHeaders = 0x01
)

// DataFrame is the body of one HTTP/2 DATA frame together with the
// stream it belongs to. Payload aliases the captured frame.
type DataFrame struct {
	StreamID uint32
	Payload  []byte
}

// DataFrames walks the HTTP/2 frames inside one TCP payload and
// collects DATA frame bodies. HEADERS frames are counted but never
// decoded: HPACK state is unrecoverable when the capture starts in
// the middle of a connection. All other frame types are skipped.
//
// A frame header declaring a length past the end of the payload
// stops the walk and sets truncated; TCP segmentation may
// legitimately split an HTTP/2 frame across segments, and this
// package does not reassemble.
func DataFrames(payload []byte) (frames []DataFrame, headers int, truncated bool) {
	for cursor := 0; cursor+http2FrameHeaderLen <= len(payload); {
		length := int(payload[cursor])<<16 | int(payload[cursor+1])<<8 | int(payload[cursor+2])
		frameType := payload[cursor+3]
		// high bit of the stream id is reserved
		streamID := uint32(payload[cursor+5]&0x7f)<<24 |
			uint32(payload[cursor+6])<<16 |
			uint32(payload[cursor+7])<<8 |
			uint32(payload[cursor+8])

		body := cursor + http2FrameHeaderLen
		if body+length > len(payload) {
			truncated = true
			break
		}

		switch frameType {
		case frameTypeData:
			frames = append(frames, DataFrame{
				StreamID: streamID,
				Payload:  payload[body : body+length],
			})
		case frameTypeHeaders:
			headers++
		}

		cursor = body + length
	}

	return frames, headers, truncated
}
