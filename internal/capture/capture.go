package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/klauspost/compress/gzip"

	"github.com/firegate/firegate/internal/packet"
)

// ErrTruncated is returned when a capture ends in the middle of a frame.
var ErrTruncated = errors.New("capture: truncated frame")

// Reader yields fixed-size frames from a capture stream, transparently
// decompressing gzip input.
type Reader struct {
	src io.Reader
	gz  *gzip.Reader
}

// NewReader sniffs r and wraps it. The gzip layer, if present, is
// detected by its magic bytes.
func NewReader(r io.Reader) (*Reader, error) {
	buffered := bufio.NewReader(r)

	magic, err := buffered.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("capture: open gzip stream: %w", err)
		}
		return &Reader{src: gz, gz: gz}, nil
	}
	return &Reader{src: buffered}, nil
}

// Next fills frame with the next packet.Size bytes. It returns io.EOF at
// a clean end of stream and ErrTruncated on a partial trailing frame.
func (r *Reader) Next(frame []byte) error {
	if len(frame) < packet.Size {
		return packet.ErrShortFrame
	}
	n, err := io.ReadFull(r.src, frame[:packet.Size])
	switch {
	case err == io.EOF:
		return io.EOF
	case err == io.ErrUnexpectedEOF:
		return fmt.Errorf("%w: %d trailing bytes", ErrTruncated, n)
	case err != nil:
		return fmt.Errorf("capture: read frame: %w", err)
	}
	return nil
}

// Close releases the gzip layer if one was opened.
func (r *Reader) Close() error {
	if r.gz != nil {
		return r.gz.Close()
	}
	return nil
}

// Writer appends frames to a capture stream, optionally gzip-compressed.
type Writer struct {
	dst io.Writer
	gz  *gzip.Writer
}

// NewWriter wraps w. With compress set, frames are written through gzip
// and Close must be called to flush the trailer.
func NewWriter(w io.Writer, compress bool) *Writer {
	if compress {
		gz := gzip.NewWriter(w)
		return &Writer{dst: gz, gz: gz}
	}
	return &Writer{dst: w}
}

// WriteFrame appends one encoded packet.
func (w *Writer) WriteFrame(pkt *packet.Packet) error {
	var frame [packet.Size]byte
	if _, err := pkt.Marshal(frame[:]); err != nil {
		return err
	}
	if _, err := w.dst.Write(frame[:]); err != nil {
		return fmt.Errorf("capture: write frame: %w", err)
	}
	return nil
}

// Close flushes the gzip trailer if compression is active.
func (w *Writer) Close() error {
	if w.gz != nil {
		return w.gz.Close()
	}
	return nil
}

// Generate writes count pseudo-random frames to w. The same seed always
// produces the same capture; timestamps increase monotonically so every
// frame carries a distinct sequence key.
func Generate(w *Writer, count int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	for i := 0; i < count; i++ {
		pkt := packet.Packet{
			Header: packet.Header{
				Source:    rng.Uint32(),
				Dest:      rng.Uint32(),
				Timestamp: uint64(i + 1),
			},
		}
		rng.Read(pkt.Payload[:])
		if err := w.WriteFrame(&pkt); err != nil {
			return err
		}
	}
	return nil
}
