package capture

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firegate/firegate/internal/packet"
	"github.com/firegate/firegate/internal/ring"
)

func TestWriteReadCapture(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
	}{
		{name: "plain"},
		{name: "gzip", compress: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, tt.compress)

			want := []packet.Packet{
				{Header: packet.Header{Source: 1, Dest: 2, Timestamp: 100}},
				{Header: packet.Header{Source: 3, Dest: 4, Timestamp: 200}},
			}
			want[0].Payload[0] = 0xaa
			want[1].Payload[packet.PayloadSize-1] = 0xbb
			for i := range want {
				require.NoError(t, w.WriteFrame(&want[i]))
			}
			require.NoError(t, w.Close())

			// The reader must figure out the compression on its own.
			r, err := NewReader(&buf)
			require.NoError(t, err)
			defer r.Close()

			frame := make([]byte, packet.Size)
			for i := range want {
				require.NoError(t, r.Next(frame))
				var got packet.Packet
				require.NoError(t, got.Unmarshal(frame))
				assert.Equal(t, want[i], got)
			}
			assert.ErrorIs(t, r.Next(frame), io.EOF)
		})
	}
}

func TestTruncatedCapture(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	pkt := packet.Packet{Header: packet.Header{Timestamp: 1}}
	require.NoError(t, w.WriteFrame(&pkt))

	// Chop the trailing frame short.
	truncated := bytes.NewReader(buf.Bytes()[:packet.Size-10])
	r, err := NewReader(truncated)
	require.NoError(t, err)

	frame := make([]byte, packet.Size)
	assert.ErrorIs(t, r.Next(frame), ErrTruncated)
}

func TestGenerateDeterministic(t *testing.T) {
	var a, b, c bytes.Buffer
	require.NoError(t, Generate(NewWriter(&a, false), 10, 42))
	require.NoError(t, Generate(NewWriter(&b, false), 10, 42))
	require.NoError(t, Generate(NewWriter(&c, false), 10, 43))

	assert.Equal(t, a.Bytes(), b.Bytes(), "same seed must produce the same capture")
	assert.NotEqual(t, a.Bytes(), c.Bytes(), "different seeds must diverge")
	assert.Equal(t, 10*packet.Size, a.Len())

	// Sequence keys must be distinct and increasing.
	r, err := NewReader(&a)
	require.NoError(t, err)
	frame := make([]byte, packet.Size)
	var last uint64
	for {
		if err := r.Next(frame); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		var pkt packet.Packet
		require.NoError(t, pkt.Unmarshal(frame))
		assert.Greater(t, pkt.Header.Timestamp, last)
		last = pkt.Header.Timestamp
	}
}

func TestFeed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(NewWriter(&buf, false), 20, 7))

	src, err := NewReader(&buf)
	require.NoError(t, err)

	dst, err := ring.New(4 * packet.Size)
	require.NoError(t, err)

	// Drain concurrently so the feed can finish despite the small ring.
	drained := make(chan int)
	go func() {
		n := 0
		frame := make([]byte, packet.Size)
		for {
			if _, err := dst.Dequeue(frame); err != nil {
				drained <- n
				return
			}
			n++
		}
	}()

	fed, err := Feed(context.Background(), src, dst, FeedOptions{})
	require.NoError(t, err)
	assert.Equal(t, 20, fed)

	dst.Close()
	assert.Equal(t, 20, <-drained)
}

func TestFeedCancellation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(NewWriter(&buf, false), 5, 7))

	src, err := NewReader(&buf)
	require.NoError(t, err)
	dst, err := ring.New(8 * packet.Size)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Feed(ctx, src, dst, FeedOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
