package database

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/coregx/verso/internal/logger"
)

// pingTimeout bounds a single liveness probe.
const pingTimeout = 5 * time.Second

// healthStatus is the outcome of the most recent ping.
type healthStatus struct {
	checkedAt time.Time
	err       error
}

// healthChecker pings the pool at a fixed interval and keeps the last
// outcome for Healthy and LastHealthCheck. database/sql replaces broken
// connections itself.
type healthChecker struct {
	db       *sql.DB
	logger   logger.Logger
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	mu   sync.RWMutex
	last healthStatus
}

func newHealthChecker(db *sql.DB, log logger.Logger, interval time.Duration) *healthChecker {
	return &healthChecker{
		db:       db,
		logger:   log,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// start launches the ping loop; shutdown stops it.
func (h *healthChecker) start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.record(h.check())
			case <-h.stop:
				return
			}
		}
	}()
}

func (h *healthChecker) check() healthStatus {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return healthStatus{err: h.db.PingContext(ctx), checkedAt: time.Now()}
}

func (h *healthChecker) record(st healthStatus) {
	h.mu.Lock()
	h.last = st
	h.mu.Unlock()

	if st.err != nil {
		h.logger.Warn("database unreachable", "error", st.err, "interval", h.interval)
		return
	}
	h.logger.Debug("database reachable", "interval", h.interval)
}

// shutdown stops the loop and waits for it. Safe to call more than once.
func (h *healthChecker) shutdown() {
	h.once.Do(func() { close(h.stop) })
	h.wg.Wait()
}

// status reports the last outcome; healthy is true until a ping fails.
func (h *healthChecker) status() (healthy bool, checkedAt time.Time, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last.err == nil, h.last.checkedAt, h.last.err
}
