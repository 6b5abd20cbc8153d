// Package video consumes finished frames. Sinks receive 8-bit RGBA
// frames in render order.
package video

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"audioviz/internal/log"
)

// FrameSink receives rendered frames.
type FrameSink interface {
	WriteFrame(pix []byte) error
	Close() error
}

// RawSink streams raw RGBA bytes to a writer. The output matches what
// ffmpeg expects from "-f rawvideo -pix_fmt rgba".
type RawSink struct {
	w      io.Writer
	closer io.Closer
	frames int
}

var _ FrameSink = (*RawSink)(nil)

// NewRawSink wraps a writer. If w is also an io.Closer, Close closes it.
func NewRawSink(w io.Writer) *RawSink {
	s := &RawSink{w: w}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewRawFileSink creates or truncates path and streams frames into it.
func NewRawFileSink(path string) (*RawSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("video: create %s: %w", path, err)
	}
	return NewRawSink(f), nil
}

func (s *RawSink) WriteFrame(pix []byte) error {
	if _, err := s.w.Write(pix); err != nil {
		return fmt.Errorf("video: write frame %d: %w", s.frames, err)
	}
	s.frames++
	return nil
}

func (s *RawSink) Close() error {
	log.Infof("Video: wrote %d raw frames", s.frames)
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// PNGSink writes each frame as a numbered PNG in a directory.
type PNGSink struct {
	dir    string
	width  int
	height int
	frames int
}

var _ FrameSink = (*PNGSink)(nil)

// NewPNGSink creates the output directory if needed.
func NewPNGSink(dir string, width, height int) (*PNGSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("video: mkdir %s: %w", dir, err)
	}
	return &PNGSink{dir: dir, width: width, height: height}, nil
}

func (s *PNGSink) WriteFrame(pix []byte) error {
	if len(pix) != s.width*s.height*4 {
		return fmt.Errorf("video: frame %d has %d bytes, want %d", s.frames, len(pix), s.width*s.height*4)
	}

	img := &image.RGBA{
		Pix:    pix,
		Stride: s.width * 4,
		Rect:   image.Rect(0, 0, s.width, s.height),
	}

	path := filepath.Join(s.dir, fmt.Sprintf("frame_%06d.png", s.frames))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("video: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("video: encode %s: %w", path, err)
	}
	s.frames++
	return f.Close()
}

func (s *PNGSink) Close() error {
	log.Infof("Video: wrote %d png frames to %s", s.frames, s.dir)
	return nil
}
