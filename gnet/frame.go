package gnet

// FrameInfo is per-packet scratch filled in while walking down the
// protocol layers of a captured frame. StreamID is only meaningful
// once an HTTP/2 DATA frame has been reached.
type FrameInfo struct {
	// 1-based position in the capture, including skipped frames.
	FrameNumber uint64
	// Capture timestamp in microseconds.
	TsMicros uint64

	Source      Endpoint
	Destination Endpoint

	StreamID uint32
}

// SourceKey is the stream key a request is filed under.
func (fi *FrameInfo) SourceKey() StreamKey {
	return StreamKey{Source: fi.Source, StreamID: fi.StreamID}
}

// DestinationKey is the stream key that pairs a response with the
// request filed under SourceKey on the other side of the stream.
func (fi *FrameInfo) DestinationKey() StreamKey {
	return StreamKey{Source: fi.Destination, StreamID: fi.StreamID}
}
