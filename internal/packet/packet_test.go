package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshal(t *testing.T) {
	in := Packet{
		Header: Header{Source: 0xdeadbeef, Dest: 0x01020304, Timestamp: 1234567890},
	}
	for i := range in.Payload {
		in.Payload[i] = byte(i)
	}

	frame := make([]byte, Size)
	n, err := in.Marshal(frame)
	require.NoError(t, err)
	assert.Equal(t, Size, n)

	var out Packet
	require.NoError(t, out.Unmarshal(frame))
	assert.Equal(t, in, out)
}

func TestShortFrame(t *testing.T) {
	var p Packet

	_, err := p.Marshal(make([]byte, Size-1))
	assert.ErrorIs(t, err, ErrShortFrame)

	err = p.Unmarshal(make([]byte, Size-1))
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestHashDeterministic(t *testing.T) {
	p := Packet{Header: Header{Source: 1, Dest: 2, Timestamp: 3}}

	first := p.Hash()
	assert.Equal(t, first, p.Hash())

	// Any content change must change the digest.
	p.Payload[0] = 0xff
	assert.NotEqual(t, first, p.Hash())
}

func TestClassifyPure(t *testing.T) {
	p := Packet{Header: Header{Source: 7, Dest: 9, Timestamp: 11}}

	verdict := Classify(&p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, verdict, Classify(&p))
	}
	assert.Contains(t, []Verdict{Pass, Drop}, verdict)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "PASS", Pass.String())
	assert.Equal(t, "DROP", Drop.String())
	assert.Equal(t, "UNKNOWN", Verdict(99).String())
}
