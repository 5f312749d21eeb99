package auditlog

import (
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/log"
	"github.com/rs/zerolog"
)

// DefaultVerifyInterval is used when Verifier is built with NewVerifier's
// zero-value interval.
const DefaultVerifyInterval = 30 * time.Second

// Verifier runs Log.Verify on a fixed interval in the background and logs a
// critical error the moment the chain fails to verify. It is cancellable
// and joinable like every other background worker in this codebase.
type Verifier struct {
	log      *Log
	interval time.Duration
	logger   zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewVerifier creates a Verifier over l. interval <= 0 is replaced by
// DefaultVerifyInterval.
func NewVerifier(l *Log, interval time.Duration) *Verifier {
	if interval <= 0 {
		interval = DefaultVerifyInterval
	}
	return &Verifier{
		log:      l,
		interval: interval,
		logger:   log.WithComponent("auditlog-verifier"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the verification loop on its own goroutine.
func (v *Verifier) Start() {
	go v.run()
}

// Stop signals the loop to exit and blocks until it has.
func (v *Verifier) Stop() {
	close(v.stopCh)
	<-v.doneCh
}

func (v *Verifier) run() {
	defer close(v.doneCh)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !v.log.Verify() {
				v.logger.Error().Msg("audit log hash chain failed verification")
			}
		case <-v.stopCh:
			return
		}
	}
}
