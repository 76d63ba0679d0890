package packet

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
)

const (
	// Size is the encoded frame size in bytes. Every frame on the wire
	// occupies exactly this much, header included.
	Size = 256

	headerSize = 16

	// PayloadSize is the opaque payload portion of a frame.
	PayloadSize = Size - headerSize
)

// ErrShortFrame is returned when a buffer is too small to hold a frame.
var ErrShortFrame = errors.New("packet: buffer shorter than frame size")

// Header carries the routing fields of a frame. Timestamp doubles as the
// sequence key: the pipeline commits results in dequeue order and uses
// the timestamp only to identify which pending entry a frame belongs to.
type Header struct {
	Source    uint32
	Dest      uint32
	Timestamp uint64
}

// Packet is one fixed-size frame.
type Packet struct {
	Header  Header
	Payload [PayloadSize]byte
}

// Marshal encodes the packet into dst, which must hold at least Size
// bytes. Returns the number of bytes written.
func (p *Packet) Marshal(dst []byte) (int, error) {
	if len(dst) < Size {
		return 0, ErrShortFrame
	}
	binary.LittleEndian.PutUint32(dst[0:4], p.Header.Source)
	binary.LittleEndian.PutUint32(dst[4:8], p.Header.Dest)
	binary.LittleEndian.PutUint64(dst[8:16], p.Header.Timestamp)
	copy(dst[headerSize:Size], p.Payload[:])
	return Size, nil
}

// Unmarshal decodes a frame from src, which must hold at least Size bytes.
func (p *Packet) Unmarshal(src []byte) error {
	if len(src) < Size {
		return ErrShortFrame
	}
	p.Header.Source = binary.LittleEndian.Uint32(src[0:4])
	p.Header.Dest = binary.LittleEndian.Uint32(src[4:8])
	p.Header.Timestamp = binary.LittleEndian.Uint64(src[8:16])
	copy(p.Payload[:], src[headerSize:Size])
	return nil
}

// Hash computes the FNV-1a digest of the encoded frame. Records render it
// as fixed-width hex.
func (p *Packet) Hash() uint64 {
	var frame [Size]byte
	p.Marshal(frame[:]) // cannot fail: buffer is exactly Size

	h := fnv.New64a()
	h.Write(frame[:])
	return h.Sum64()
}

// Verdict is the classification of a single frame.
type Verdict int

const (
	Pass Verdict = iota
	Drop
)

// String renders the verdict as it appears in output records.
func (v Verdict) String() string {
	switch v {
	case Pass:
		return "PASS"
	case Drop:
		return "DROP"
	default:
		return "UNKNOWN"
	}
}

// Classify decides the verdict for a frame. Pure: the decision depends
// only on the frame contents.
func Classify(p *Packet) Verdict {
	if p.Hash()%2 == 0 {
		return Pass
	}
	return Drop
}
