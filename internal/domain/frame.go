package domain

// FrameView is a borrowed view of a captured frame.
// Data belongs to the frame source and is valid only until the source's
// Release is called.
type FrameView struct {
	// Data is the encoded frame (JPEG for the bundled sources)
	Data []byte

	// Width and Height are the frame dimensions in pixels
	Width  int
	Height int

	// Timestamp is the capture time in monotonic microseconds
	Timestamp int64
}

// Valid reports whether the view carries any bytes.
func (v FrameView) Valid() bool {
	return len(v.Data) > 0
}

// Size returns the number of bytes in the view.
func (v FrameView) Size() int {
	return len(v.Data)
}
