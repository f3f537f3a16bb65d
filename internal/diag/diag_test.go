package diag

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktgraph/internal/config"
	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/log"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(t *testing.T) (log.Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	l, err := log.New(config.LogConfig{Level: "info", Format: "text", Pattern: "%msg %field"}, buf)
	require.NoError(t, err)
	return l, buf
}

func TestConfigErrorFormat(t *testing.T) {
	err := &ConfigError{Element: "chk", Class: "CheckIPHeader", Msg: "expects IPADDRESS"}
	assert.Equal(t, "chk :: CheckIPHeader: expects IPADDRESS", err.Error())
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	err = &ConfigError{Class: "Paint", Msg: "bad"}
	assert.Equal(t, "Paint: bad", err.Error())
}

func TestContextHandlerRecordsAndLogs(t *testing.T) {
	l, buf := newTestLogger(t)
	h := NewContextHandler(l, "paint", "Paint")

	err := h.Errorf("color %d out of range", 256)

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "paint", cerr.Element)
	assert.Equal(t, "color 256 out of range", cerr.Msg)
	assert.Len(t, h.Errors(), 1)
	assert.Contains(t, buf.String(), "color 256 out of range class=Paint,element=paint")
}

func TestLogSinkWritesLines(t *testing.T) {
	l, buf := newTestLogger(t)
	s := NewLogSink(l, 16)

	s.Chatter("IP checksum failed")
	s.Close()

	assert.Equal(t, "IP checksum failed\n", buf.String())
	assert.Zero(t, s.Dropped())
}

func TestLogSinkNeverBlocks(t *testing.T) {
	gate := make(chan struct{})
	s := NewLogSink(blockingLogger{Logger: log.GetLogger(), gate: gate}, 2)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Chatter("line")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Chatter blocked on a full queue")
	}
	assert.Greater(t, s.Dropped(), uint64(0))

	close(gate)
	s.Close()
}

func TestLogSinkNoticeSurvivesFullQueue(t *testing.T) {
	l, buf := newTestLogger(t)
	gl := &gatedLogger{Logger: l, entered: make(chan struct{}), gate: make(chan struct{})}
	s := NewLogSink(gl, 1)

	s.Chatter("Print a 1 |  20 : 45000014")
	<-gl.entered // writer holds the first line, queue is empty
	s.Chatter("Print a 2 |  20 : 45000014")
	s.Chatter("Print a 3 |  20 : 45000014")
	s.Notice("IP checksum failed")

	close(gl.gate)
	s.Close()

	out := buf.String()
	assert.Contains(t, out, "IP checksum failed\n")
	assert.Contains(t, out, "Print a 2")
	assert.NotContains(t, out, "Print a 3")
	assert.Equal(t, uint64(1), s.Dropped())
}

func TestNoticeFallsBackToChatter(t *testing.T) {
	rec := NewRecorder()
	Notice(rec, "IP checksum failed")
	assert.Equal(t, []string{"IP checksum failed"}, rec.Lines())
}

func TestLogSinkNoticeAfterClose(t *testing.T) {
	l, buf := newTestLogger(t)
	s := NewLogSink(l, 4)
	s.Close()

	s.Notice("IP checksum failed")
	assert.Equal(t, "IP checksum failed\n", buf.String())
	assert.Zero(t, s.Dropped())
}

func TestLogSinkAfterClose(t *testing.T) {
	l, buf := newTestLogger(t)
	s := NewLogSink(l, 4)
	s.Close()
	s.Close()

	s.Chatter("late")
	assert.Equal(t, uint64(1), s.Dropped())
	assert.False(t, strings.Contains(buf.String(), "late"))
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Chatter("a")
	err := r.Errorf("bad %s", "arg")

	assert.Equal(t, []string{"a"}, r.Lines())
	assert.Equal(t, []string{"bad arg"}, r.ErrorMessages())
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	r.Reset()
	assert.Empty(t, r.Lines())
	assert.Empty(t, r.ErrorMessages())
}

// blockingLogger stalls the sink's writer until gate closes.
type blockingLogger struct {
	log.Logger
	gate chan struct{}
}

func (b blockingLogger) Info(args ...interface{}) { <-b.gate }

// gatedLogger holds the first Info call until gate closes.
type gatedLogger struct {
	log.Logger
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedLogger) Info(args ...interface{}) {
	g.once.Do(func() {
		close(g.entered)
		<-g.gate
	})
	g.Logger.Info(args...)
}
