package pcap

import (
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
)

// FileReader supplies timestamped Ethernet frames from an offline
// capture, in capture order.
type FileReader struct {
	handle *pcap.Handle
}

// OpenFile opens a classic tcpdump capture and discards the first
// skip frames without decoding them. Read errors while skipping are
// ignored on purpose: a skip count past the end of the file just
// yields an empty reader.
func OpenFile(name string, skip int) (*FileReader, error) {
	handle, err := pcap.OpenOffline(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}

	if handle.LinkType() != layers.LinkTypeEthernet {
		handle.Close()
		return nil, errors.Errorf("%s: unsupported link type %v, want Ethernet", name, handle.LinkType())
	}

	r := &FileReader{handle: handle}
	for i := 0; i < skip; i++ {
		if _, _, err := handle.ReadPacketData(); err != nil {
			break
		}
	}
	return r, nil
}

// Next returns the next frame and its capture timestamp in
// microseconds. It returns io.EOF at the end of the file.
func (r *FileReader) Next() (frame []byte, tsMicros uint64, err error) {
	data, ci, err := r.handle.ReadPacketData()
	if err != nil {
		return nil, 0, err
	}
	return data, uint64(ci.Timestamp.UnixMicro()), nil
}

func (r *FileReader) Close() {
	r.handle.Close()
}
