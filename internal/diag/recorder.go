package diag

import (
	"fmt"
	"sync"
)

// Recorder keeps every line and error in memory. It implements both Sink and
// ErrorHandler and is used by validation runs and tests.
type Recorder struct {
	mu     sync.Mutex
	lines  []string
	errors []string
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Chatter(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

func (r *Recorder) Errorf(format string, args ...any) error {
	err := &ConfigError{Msg: fmt.Sprintf(format, args...)}
	r.mu.Lock()
	r.errors = append(r.errors, err.Msg)
	r.mu.Unlock()
	return err
}

func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *Recorder) ErrorMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.lines = nil
	r.errors = nil
	r.mu.Unlock()
}
