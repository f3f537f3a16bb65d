package hexprint

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktgraph/internal/checksum"
	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
)

func newPrint(t *testing.T, args ...string) (*Print, *diag.Recorder) {
	t.Helper()
	rec := diag.NewRecorder()
	e := New(element.NewEnv(rec, checksum.ModeFast)).(*Print)
	require.NoError(t, e.Configure(args, rec))
	return e, rec
}

func seq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestPrintDefaults(t *testing.T) {
	e, _ := newPrint(t, "in")
	assert.Equal(t, "in", e.Label())
	assert.Equal(t, 24, e.MaxBytes())
	assert.Equal(t, 3*24+1, cap(e.buf))
}

func TestPrintLine(t *testing.T) {
	e, rec := newPrint(t, "x", "6")
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03}
	p := core.NewPacket(data)

	assert.Equal(t, element.Forward, e.Process(p))
	want := fmt.Sprintf("Print x %x |   7 : deadbeef 0102", p.ID())
	assert.Equal(t, []string{want}, rec.Lines())
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03}, p.Data())
	assert.False(t, p.Dead())
}

func TestPrintPreviewLength(t *testing.T) {
	cases := []struct {
		length, max int
		preview     string
	}{
		{0, 24, ""},
		{3, 24, "000102"},
		{4, 24, "00010203 "},
		{9, 24, "00010203 04050607 08"},
		{100, 8, "00010203 04050607 "},
		{100, 0, ""},
	}
	for _, tc := range cases {
		e, rec := newPrint(t, "l", fmt.Sprint(tc.max))
		p := core.NewPacket(seq(tc.length))
		e.Process(p)
		lines := rec.Lines()
		require.Len(t, lines, 1)
		prefix := fmt.Sprintf("Print l %x |%4d : ", p.ID(), tc.length)
		require.True(t, strings.HasPrefix(lines[0], prefix), lines[0])
		assert.Equal(t, tc.preview, strings.TrimPrefix(lines[0], prefix), "len %d max %d", tc.length, tc.max)
		assert.Equal(t, 2*min(tc.length, tc.max), len(strings.ReplaceAll(tc.preview, " ", "")))
	}
}

func TestPrintReconfigureReplacesBuffer(t *testing.T) {
	e, rec := newPrint(t, "a", "4")
	e.Process(core.NewPacket(seq(16)))

	require.NoError(t, e.Configure([]string{"b", "12"}, rec))
	assert.Equal(t, 3*12+1, cap(e.buf))
	e.Process(core.NewPacket(seq(16)))

	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], ": 00010203 "))
	assert.True(t, strings.HasSuffix(lines[1], ": 00010203 04050607 08090a0b "))
	assert.True(t, strings.HasPrefix(lines[1], "Print b "))
}

func TestPrintConfigureErrors(t *testing.T) {
	cases := map[string][]string{
		"missing":  nil,
		"extra":    {"a", "1", "2"},
		"negative": {"a", "-1"},
		"garbage":  {"a", "lots"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			e, rec := newPrint(t, "keep", "8")
			err := e.Configure(args, rec)
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
			assert.Equal(t, "keep", e.Label())
			assert.Equal(t, 8, e.MaxBytes())
		})
	}
}

func TestPrintResourceLimit(t *testing.T) {
	e, rec := newPrint(t, "keep")
	err := e.Configure([]string{"big", fmt.Sprint(maxBytesLimit + 1)}, rec)
	assert.ErrorIs(t, err, core.ErrResourceExhausted)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Equal(t, 24, e.MaxBytes())

	require.NoError(t, e.Configure([]string{"ok", fmt.Sprint(maxBytesLimit)}, rec))
}

func TestPrintIdentityDistinguishesPackets(t *testing.T) {
	e, rec := newPrint(t, "id", "0")
	a, b := core.NewPacket(nil), core.NewPacket(nil)
	e.Process(a)
	e.Process(b)
	e.Process(a)
	lines := rec.Lines()
	require.Len(t, lines, 3)
	assert.NotEqual(t, lines[0], lines[1])
	assert.Equal(t, lines[0], lines[2])
}

func TestPrintClone(t *testing.T) {
	e, _ := newPrint(t, "h", "10")
	cl := e.Clone().(*Print)
	assert.Equal(t, "", cl.Label())
	assert.Equal(t, Class, cl.Class())
}

func BenchmarkPrint(b *testing.B) {
	e := New(nil).(*Print)
	require.NoError(b, e.Configure([]string{"bench"}, diag.NewRecorder()))
	p := core.NewPacket(seq(64))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.Process(p)
	}
}
