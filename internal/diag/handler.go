package diag

import (
	"fmt"
	"sync"

	"firestige.xyz/pktgraph/internal/log"
	"firestige.xyz/pktgraph/internal/metrics"
)

// ContextHandler attributes errors to an element and logs them.
type ContextHandler struct {
	logger  log.Logger
	element string
	class   string

	mu   sync.Mutex
	errs []error
}

func NewContextHandler(logger log.Logger, element, class string) *ContextHandler {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &ContextHandler{
		logger:  logger,
		element: element,
		class:   class,
	}
}

func (h *ContextHandler) Errorf(format string, args ...any) error {
	err := &ConfigError{
		Element: h.element,
		Class:   h.class,
		Msg:     fmt.Sprintf(format, args...),
	}
	h.logger.WithField("element", h.element).WithField("class", h.class).Error(err.Msg)
	metrics.ConfigErrorsTotal.WithLabelValues(h.class).Inc()

	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
	return err
}

// Errors returns every error reported so far.
func (h *ContextHandler) Errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}
