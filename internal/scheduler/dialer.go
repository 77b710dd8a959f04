package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/internal/service"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
)

// callDialer is a minimal internal interface for the dialer loop. It
// matches the ProcessDueCalls method of CallService and lets us unit test
// the loop with a small fake implementation.
type callDialer interface {
	ProcessDueCalls(ctx context.Context) ([]domain.DialResult, error)
}

// Dialer periodically places the calls that are due in the queue.
type Dialer struct {
	callService     callDialer
	interval        time.Duration
	alertWebhook    string
	alertThreshold  int // Number of consecutive all-fail iterations before alert
	lastAlertSentAt time.Time

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt   time.Time
	callsPlaced int64
	runsCount   int64

	// Alert tracking
	consecutiveAllFailCount int
}

func NewDialer(callService *service.CallService, interval time.Duration) *Dialer {
	return &Dialer{
		callService: callService,
		interval:    interval,
		running:     false,
	}
}

func (d *Dialer) StartWithParams(
	ctx context.Context,
	intervalMinutes int,
	alertWebhook string,
	alertThreshold int,
) error {
	if intervalMinutes <= 0 {
		intervalMinutes = 2
	}

	d.mu.Lock()
	d.interval = time.Duration(intervalMinutes) * time.Minute
	d.alertWebhook = alertWebhook
	d.alertThreshold = alertThreshold
	d.consecutiveAllFailCount = 0
	d.mu.Unlock()

	return d.Start(ctx)
}

func (d *Dialer) Start(ctx context.Context) error {
	d.mu.Lock()

	if d.running {
		d.mu.Unlock()
		logger.Warnf("Dialer is already running")
		return nil
	}

	d.running = true
	d.stopChan = make(chan struct{})
	d.doneChan = make(chan struct{})
	d.mu.Unlock()

	logger.Infof("Starting dialer with interval: %v", d.interval)

	go d.run(ctx)

	return nil
}

func (d *Dialer) run(ctx context.Context) {
	defer close(d.doneChan)

	d.placeDueCalls(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	logger.Infof("Dialer running. Next execution in %v", d.interval)

	for {
		select {
		case <-ticker.C:
			d.placeDueCalls(ctx)
			logger.Debugf("Next execution in %v", d.interval)

		case <-d.stopChan:
			logger.Warnf("Dialer received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Dialer context cancelled")
			return
		}
	}
}

func (d *Dialer) placeDueCalls(ctx context.Context) {
	d.mu.Lock()
	d.lastRunAt = time.Now()
	d.runsCount++
	runNumber := d.runsCount
	alertWebhook := d.alertWebhook
	alertThreshold := d.alertThreshold
	d.mu.Unlock()

	logger.Infof("[Run #%d] Starting dial pass at %s", runNumber, d.lastRunAt.Format(time.RFC3339))

	results, err := d.callService.ProcessDueCalls(ctx)
	if err != nil {
		logger.Errorf("[Run #%d] Error placing calls: %v", runNumber, err)
		return
	}

	if results == nil {
		logger.Debugf("[Run #%d] No due calls", runNumber)
		return
	}

	successCount := 0
	allFailed := true
	for _, r := range results {
		if r.Success {
			successCount++
			allFailed = false
		}
	}

	d.mu.Lock()
	d.callsPlaced += int64(successCount)

	// Track consecutive all-fail iterations
	if allFailed && len(results) > 0 {
		d.consecutiveAllFailCount++
		logger.Warnf("[Run #%d] All %d calls failed (consecutive count: %d/%d)",
			runNumber, len(results), d.consecutiveAllFailCount, alertThreshold)

		if d.consecutiveAllFailCount >= alertThreshold && alertThreshold > 0 && alertWebhook != "" {
			go d.sendAlert(alertWebhook, runNumber, d.consecutiveAllFailCount, len(results))
		}
	} else {
		if d.consecutiveAllFailCount > 0 {
			logger.Debugf(
				"[Run #%d] Resetting consecutive failure count (was: %d)",
				runNumber,
				d.consecutiveAllFailCount,
			)
		}
		d.consecutiveAllFailCount = 0
	}
	d.mu.Unlock()

	logger.Infof("[Run #%d] Dialed %d entries, %d placed, %d failed",
		runNumber, len(results), successCount, len(results)-successCount)
}

func (d *Dialer) Stop() error {
	d.mu.Lock()

	if !d.running {
		d.mu.Unlock()
		logger.Warnf("Dialer is not running")
		return nil
	}

	d.running = false
	stopChan := d.stopChan
	doneChan := d.doneChan
	d.mu.Unlock()

	// Send stop signal
	close(stopChan)

	// Wait for goroutine to finish
	<-doneChan

	logger.Infof("Dialer stopped")
	return nil
}

func (d *Dialer) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

func (d *Dialer) GetStatus() DialerStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := DialerStatus{
		Running:                 d.running,
		LastRunAt:               d.lastRunAt,
		CallsPlaced:             d.callsPlaced,
		RunsCount:               d.runsCount,
		Interval:                d.interval,
		ConsecutiveAllFailCount: d.consecutiveAllFailCount,
		LastAlertSentAt:         d.lastAlertSentAt,
	}

	if d.running && !d.lastRunAt.IsZero() {
		status.NextRunAt = d.lastRunAt.Add(d.interval)
	}

	return status
}

func (d *Dialer) sendAlert(webhookURL string, runNumber int64, consecutiveFailures int, callsInBatch int) {
	alertPayload := map[string]any{
		"alert":               "consecutive_all_fail",
		"runNumber":           runNumber,
		"consecutiveFailures": consecutiveFailures,
		"callsInBatch":        callsInBatch,
		"timestamp":           time.Now().Format(time.RFC3339),
		"message": fmt.Sprintf(
			"All %d outbound calls failed for %d consecutive iterations",
			callsInBatch,
			consecutiveFailures,
		),
	}

	jsonData, err := json.Marshal(alertPayload)
	if err != nil {
		logger.Errorf("Failed to marshal alert payload: %v", err)
		return
	}

	resp, err := http.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Errorf("Failed to send alert to webhook: %v", err)
		return
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("Failed to close alert webhook response body: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		d.mu.Lock()
		d.lastAlertSentAt = time.Now()
		d.mu.Unlock()
		logger.Infof("Alert sent successfully to %s (consecutive failures: %d)", webhookURL, consecutiveFailures)
	} else {
		logger.Warnf("Alert webhook returned status %d", resp.StatusCode)
	}
}

type DialerStatus struct {
	Running                 bool          `json:"running"`
	LastRunAt               time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt               time.Time     `json:"nextRunAt,omitempty"`
	CallsPlaced             int64         `json:"callsPlaced"`
	RunsCount               int64         `json:"runsCount"`
	Interval                time.Duration `json:"interval"`
	ConsecutiveAllFailCount int           `json:"consecutiveAllFailCount"`
	LastAlertSentAt         time.Time     `json:"lastAlertSentAt,omitempty"`
}
