package booking

import (
	"github.com/labstack/gommon/log"
)

// Hooks carries the optional side channels of the engine.  Zero values are
// replaced by no-op implementations and a "booking" logger.
type Hooks struct {
	Publisher EventPublisher
	Metrics   Metrics
	Log       *log.Logger
}

func (h Hooks) withDefaults() Hooks {
	if h.Publisher == nil {
		h.Publisher = nopPublisher{}
	}
	if h.Metrics == nil {
		h.Metrics = nopMetrics{}
	}
	if h.Log == nil {
		h.Log = log.New("booking")
	}
	return h
}
