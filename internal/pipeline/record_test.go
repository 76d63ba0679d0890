package pipeline

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// The record layout is the output contract; a golden file keeps it from
// drifting.
//
// Regenerate with:
//   go test ./internal/pipeline -run TestRecordFormatGolden -update
func TestRecordFormatGolden(t *testing.T) {
	var out bytes.Buffer
	out.Write(formatRecord("PASS", 0xdeadbeef, 42))
	out.Write(formatRecord("DROP", 0x1, 7))
	out.Write(formatRecord("ERR", 0xffffffffffffffff, 9))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "records", out.Bytes())
}
