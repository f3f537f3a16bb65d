// Package todump implements ToDump, which writes packets to a pcap file with
// the raw IP link type and consumes them.
package todump

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
)

const (
	Class = "ToDump"

	defaultSnaplen = 65535
)

type ToDump struct {
	env  *element.Env
	sink diag.Sink

	filename string
	snaplen  int
	file     *os.File
	buf      *bufio.Writer
	w        *pcapgo.Writer

	count  atomic.Uint64
	errors atomic.Uint64
}

func New(env *element.Env) element.Element {
	e := &ToDump{env: env, sink: diag.Discard}
	if env != nil && env.Sink != nil {
		e.sink = env.Sink
	}
	return e
}

func (e *ToDump) Class() string                  { return Class }
func (e *ToDump) Processing() element.Processing { return element.AgnosticProcessing }
func (e *ToDump) Clone() element.Element         { return New(e.env) }
func (e *ToDump) NotifyOutputs(int) int          { return 0 }

// Configure takes FILENAME and an optional SNAPLEN. The new file is created
// and its header written before the previous file, if any, is closed.
func (e *ToDump) Configure(args []string, errh diag.ErrorHandler) error {
	if len(args) < 1 || len(args) > 2 {
		return errh.Errorf("expected `ToDump(FILENAME [, SNAPLEN])', got %d arguments", len(args))
	}
	filename := strings.TrimSpace(args[0])
	if filename == "" {
		return errh.Errorf("FILENAME must not be empty")
	}
	snaplen := defaultSnaplen
	if len(args) == 2 {
		v, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil || v <= 0 {
			return errh.Errorf("SNAPLEN must be a positive integer, got %q", args[1])
		}
		snaplen = v
	}

	f, err := os.Create(filename)
	if err != nil {
		return errh.Errorf("%s: %v", filename, err)
	}
	buf := bufio.NewWriter(f)
	w := pcapgo.NewWriter(buf)
	if err := w.WriteFileHeader(uint32(snaplen), layers.LinkTypeRaw); err != nil {
		f.Close()
		return errh.Errorf("%s: %v", filename, err)
	}

	if err := e.Close(); err != nil {
		e.sink.Chatter("ToDump: closing " + e.filename + ": " + err.Error())
	}
	e.filename, e.snaplen = filename, snaplen
	e.file, e.buf, e.w = f, buf, w
	return nil
}

func (e *ToDump) Process(p *core.Packet) element.Action {
	if e.w != nil {
		data := p.Data()
		ts := p.Anno.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     ts,
			CaptureLength: min(len(data), e.snaplen),
			Length:        len(data),
		}
		if err := e.w.WritePacket(ci, data[:ci.CaptureLength]); err != nil {
			if e.errors.Add(1) == 1 {
				e.sink.Chatter("ToDump " + e.filename + ": " + err.Error())
			}
		} else {
			e.count.Add(1)
		}
	}
	p.Kill()
	return element.Consume
}

// Close flushes and closes the current file.
func (e *ToDump) Close() error {
	if e.file == nil {
		return nil
	}
	err := errors.Join(e.buf.Flush(), e.file.Close())
	e.file, e.buf, e.w = nil, nil, nil
	return err
}

func (e *ToDump) Count() uint64 { return e.count.Load() }

func (e *ToDump) AddHandlers(h *element.Handlers) {
	h.AddRead("count", func() string {
		return strconv.FormatUint(e.count.Load(), 10) + "\n"
	})
}
