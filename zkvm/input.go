package zkvm

import (
	"encoding/binary"
	"fmt"
)

// InputStream stages the guest program's input as an ordered sequence
// of frames, one frame per typed write. The guest reads frames back in
// write order; a stream is owned by a single pipeline invocation and
// consumed by exactly one engine call.
type InputStream struct {
	frames [][]byte
	next   int
}

func NewInputStream() *InputStream {
	return &InputStream{}
}

// StageInput builds the input stream for the fibonacci guest, which
// expects a single u32 index.
func StageInput(n uint32) *InputStream {
	in := NewInputStream()
	in.WriteU32(n)
	return in
}

// WriteU32 appends a little-endian u32 frame, matching the guest's
// native byte order.
func (s *InputStream) WriteU32(v uint32) {
	frame := make([]byte, 4)
	binary.LittleEndian.PutUint32(frame, v)
	s.frames = append(s.frames, frame)
}

// WriteBytes appends a raw byte frame.
func (s *InputStream) WriteBytes(b []byte) {
	frame := make([]byte, len(b))
	copy(frame, b)
	s.frames = append(s.frames, frame)
}

// ReadU32 consumes the next frame as a u32.
func (s *InputStream) ReadU32() (uint32, error) {
	frame, err := s.ReadBytes()
	if err != nil {
		return 0, err
	}
	if len(frame) != 4 {
		return 0, fmt.Errorf("input frame %d is %d bytes, want 4 for u32", s.next-1, len(frame))
	}
	return binary.LittleEndian.Uint32(frame), nil
}

// ReadBytes consumes the next frame.
func (s *InputStream) ReadBytes() ([]byte, error) {
	if s.next >= len(s.frames) {
		return nil, fmt.Errorf("input stream exhausted after %d frames", len(s.frames))
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

// Len returns the number of staged frames, consumed or not.
func (s *InputStream) Len() int {
	return len(s.frames)
}
