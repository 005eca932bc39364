package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Pinger verifies the durable store is reachable. *storage.Store satisfies
// it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ledger exposes the invariant checks the host provides.
type Ledger interface {
	Height() uint64
	Instantiated() bool
	AuditSupply() error
}

// Checker performs health checks on application dependencies
type Checker struct {
	db             Pinger
	ledger         Ledger
	lastRunTime    time.Time
	lastRunSuccess bool
	interval       time.Duration
	mu             sync.RWMutex
}

// NewChecker creates a new health checker. db may be nil for a memory-only
// deployment; interval is the expected maintenance cadence, zero when no
// maintenance jobs run.
func NewChecker(db Pinger, ledger Ledger, interval time.Duration) *Checker {
	return &Checker{
		db:       db,
		ledger:   ledger,
		interval: interval,
	}
}

// UpdateLastRun updates the timestamp and status of the last maintenance run
func (c *Checker) UpdateLastRun(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRunTime = time.Now()
	c.lastRunSuccess = success
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var startTime = time.Now()

// Check performs all health checks and returns the aggregated status
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overallStatus := StatusOK

	// Check 1: Database connectivity (only when persistence is enabled)
	if c.db != nil {
		dbCheck := c.checkDatabase(ctx)
		checks["database"] = dbCheck
		if dbCheck.Status != StatusOK {
			overallStatus = StatusError
		}
	}

	// Check 2: Ledger supply invariant
	ledgerCheck := c.checkLedger()
	checks["ledger"] = ledgerCheck
	if ledgerCheck.Status == StatusError {
		overallStatus = StatusError
	}

	// Check 3: Maintenance cadence (if scheduled)
	if c.interval > 0 {
		maintCheck := c.checkMaintenance()
		checks["maintenance"] = maintCheck
		if maintCheck.Status != StatusOK && overallStatus == StatusOK {
			overallStatus = StatusDegraded
		}
	}

	return HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
}

// checkDatabase verifies PostgreSQL connectivity
func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "database unreachable: " + err.Error(),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: "database connection healthy",
	}
}

// checkLedger verifies that balances still sum to the recorded total supply.
// A violation means corrupt state, never a transient condition.
func (c *Checker) checkLedger() CheckDetail {
	if !c.ledger.Instantiated() {
		return CheckDetail{
			Status:  StatusOK,
			Message: "token not yet instantiated",
		}
	}

	if err := c.ledger.AuditSupply(); err != nil {
		slog.Error("Health check: supply audit failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: err.Error(),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("supply invariant holds at height %d", c.ledger.Height()),
	}
}

// checkMaintenance verifies the maintenance jobs run at expected intervals
func (c *Checker) checkMaintenance() CheckDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// If we've never run, that's OK (might be starting up)
	if c.lastRunTime.IsZero() {
		return CheckDetail{
			Status:  StatusOK,
			Message: "maintenance not yet executed (startup)",
		}
	}

	// Check if last run was successful
	if !c.lastRunSuccess {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: "last maintenance run failed",
		}
	}

	// Check if we're running on schedule (allow 2x interval grace period)
	timeSinceLastRun := time.Since(c.lastRunTime)
	graceThreshold := c.interval * 2

	if timeSinceLastRun > graceThreshold {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no maintenance in %s (expected every %s)", timeSinceLastRun.Round(time.Second), c.interval),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last maintenance %s ago", timeSinceLastRun.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Only support GET
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx := r.Context()
		status := c.Check(ctx)

		// Set status code based on health
		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
