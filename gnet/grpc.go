package gnet

// gRPC-on-HTTP/2 prepends each message with a compression flag byte
// and a 4-byte big-endian length.
const grpcPrefixLen = 5

// Messages strips the gRPC length-prefix framing from a DATA frame
// body, returning one blob per message. Compressed messages are not
// supported and are skipped, reported via the second return value.
//
// If the last prefix declares more bytes than the frame carries,
// the remainder is returned as-is: the trial protobuf decode
// downstream rejects partial messages anyway, and captures taken
// with a short snap length still yield the messages they do carry.
func Messages(data []byte) (msgs [][]byte, compressed int) {
	for cursor := 0; cursor+grpcPrefixLen <= len(data); {
		flag := data[cursor]
		length := int(data[cursor+1])<<24 |
			int(data[cursor+2])<<16 |
			int(data[cursor+3])<<8 |
			int(data[cursor+4])

		body := cursor + grpcPrefixLen
		end := body + length
		if end > len(data) {
			if flag == 0 {
				msgs = append(msgs, data[body:])
			}
			break
		}

		if flag != 0 {
			compressed++
		} else {
			msgs = append(msgs, data[body:end])
		}

		cursor = end
	}

	return msgs, compressed
}
