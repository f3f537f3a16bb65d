package todump

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
)

func TestToDumpWritesPcap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pcap")
	e := New(nil).(*ToDump)
	require.NoError(t, e.Configure([]string{path, "4"}, diag.NewRecorder()))

	ts := time.Unix(1700000000, 5000)
	p := core.NewPacketAt([]byte{0x45, 0, 0, 20, 9, 9}, ts)
	assert.Equal(t, element.Consume, e.Process(p))
	assert.True(t, p.Dead())
	e.Process(core.NewPacket([]byte{0x45}))
	require.NoError(t, e.Close())
	assert.Equal(t, uint64(2), e.Count())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeRaw, r.LinkType())
	assert.Equal(t, uint32(4), r.Snaplen())

	data, ci, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45, 0, 0, 20}, data)
	assert.Equal(t, 6, ci.Length)
	assert.True(t, ci.Timestamp.Equal(ts.Truncate(time.Microsecond)))

	data, _, err = r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45}, data)
}

func TestToDumpReconfigure(t *testing.T) {
	dir := t.TempDir()
	rec := diag.NewRecorder()
	e := New(nil).(*ToDump)
	first := filepath.Join(dir, "a.pcap")
	require.NoError(t, e.Configure([]string{first}, rec))
	e.Process(core.NewPacket([]byte{1, 2, 3}))

	require.Error(t, e.Configure([]string{filepath.Join(dir, "missing", "b.pcap")}, rec))
	assert.Equal(t, first, e.filename)
	table := element.NewHandlerTable()
	e.AddHandlers(table.Scope("dump"))
	n, err := table.Read("dump.count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", n)

	require.NoError(t, e.Configure([]string{filepath.Join(dir, "b.pcap")}, rec))
	require.NoError(t, e.Close())

	st, err := os.Stat(first)
	require.NoError(t, err)
	assert.Equal(t, int64(24+16+3), st.Size())
}

func TestToDumpConfigureErrors(t *testing.T) {
	rec := diag.NewRecorder()
	for _, args := range [][]string{nil, {""}, {"x", "0"}, {"x", "big"}, {"a", "1", "2"}} {
		e := New(nil)
		assert.ErrorIs(t, e.Configure(args, rec), core.ErrConfigInvalid, "%q", args)
	}
}
