package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/duedesk/DueDesk/internal/pkg/archive"
	"github.com/duedesk/DueDesk/internal/pkg/cache"
	"github.com/duedesk/DueDesk/internal/pkg/env"
	"github.com/duedesk/DueDesk/internal/pkg/metrics/counter"
	"github.com/duedesk/DueDesk/internal/pkg/reminder"
)

const (
	dispatchLeaseKey = "scheduler:lease:reminder-dispatch"
	renewalLeaseKey  = "scheduler:lease:auto-renewal"
	archiveLeaseKey  = "scheduler:lease:audit-archive"
)

// Manager runs the periodic reminder dispatch and auto-renewal sweeps
type Manager struct {
	dispatcher *reminder.Dispatcher
	renewer    *reminder.Renewer
	exporter   *archive.Exporter

	dispatchTicker *time.Ticker
	renewalTicker  *time.Ticker
	archiveTicker  *time.Ticker
	instanceID     string
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global scheduler manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			instanceID: uuid.NewString(),
			stopCh:     make(chan struct{}),
		}
	})
	return globalManager
}

// Configure sets the workers the manager drives. Must be called before Start.
func (m *Manager) Configure(dispatcher *reminder.Dispatcher, renewer *reminder.Renewer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatcher = dispatcher
	m.renewer = renewer
}

// ConfigureArchive sets the optional audit archive exporter. When it is not
// configured the archive sweep simply never runs.
func (m *Manager) ConfigureArchive(exporter *archive.Exporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exporter = exporter
}

// Start starts the background sweeps
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	if m.dispatcher == nil || m.renewer == nil {
		log.Error("[Scheduler] Start called before Configure, background sweeps disabled")
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Scheduler] Starting background sweeps")

	dispatchInterval := intervalFromEnv("REMINDER_DISPATCH_INTERVAL_MINUTES", 60)
	renewalInterval := intervalFromEnv("RENEWAL_SWEEP_INTERVAL_MINUTES", 360)

	m.dispatchTicker = time.NewTicker(dispatchInterval)
	m.wg.Add(1)
	go m.dispatchWorker(dispatchInterval)

	m.renewalTicker = time.NewTicker(renewalInterval)
	m.wg.Add(1)
	go m.renewalWorker(renewalInterval)

	if m.exporter != nil {
		archiveInterval := intervalFromEnv("AUDIT_ARCHIVE_INTERVAL_MINUTES", 1440)
		m.archiveTicker = time.NewTicker(archiveInterval)
		m.wg.Add(1)
		go m.archiveWorker(archiveInterval)
	}

	log.Info("[Scheduler] Started successfully")
}

// Stop stops the background sweeps
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Scheduler] Stopping background sweeps...")

	if m.dispatchTicker != nil {
		m.dispatchTicker.Stop()
	}
	if m.renewalTicker != nil {
		m.renewalTicker.Stop()
	}
	if m.archiveTicker != nil {
		m.archiveTicker.Stop()
	}

	close(m.stopCh)
	m.running = false

	m.wg.Wait()

	log.Info("[Scheduler] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunDispatchOnce triggers a single reminder dispatch pass (cron endpoint and
// admin use). It does not take the lease; the caller decides when to run.
func (m *Manager) RunDispatchOnce(ctx context.Context) (reminder.Result, error) {
	return m.dispatcher.Run(ctx)
}

// RunRenewalOnce triggers a single auto-renewal sweep.
func (m *Manager) RunRenewalOnce(ctx context.Context) (int, error) {
	return m.renewer.Run(ctx)
}

func (m *Manager) dispatchWorker(interval time.Duration) {
	defer m.wg.Done()
	log.Infof("[Scheduler] Started reminder dispatch worker (interval: %s)", interval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[Scheduler] Reminder dispatch worker stopping")
			return
		case <-m.dispatchTicker.C:
			if !m.acquireLease(dispatchLeaseKey, interval) {
				log.Debug("[Scheduler] Reminder dispatch lease held elsewhere, skipping")
				continue
			}
			result, err := m.dispatcher.Run(context.Background())
			if err != nil {
				log.Errorf("[Scheduler] Reminder dispatch error: %v", err)
				continue
			}
			log.Infof("[Scheduler] Reminder dispatch: %d sent, %d skipped of %d",
				result.Sent, result.Skipped, result.Total)
			if err := counter.FlushAll(); err != nil {
				log.Errorf("[Scheduler] Reminder counter flush error: %v", err)
			}
		}
	}
}

func (m *Manager) renewalWorker(interval time.Duration) {
	defer m.wg.Done()
	log.Infof("[Scheduler] Started auto-renewal worker (interval: %s)", interval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[Scheduler] Auto-renewal worker stopping")
			return
		case <-m.renewalTicker.C:
			if !m.acquireLease(renewalLeaseKey, interval) {
				log.Debug("[Scheduler] Auto-renewal lease held elsewhere, skipping")
				continue
			}
			if _, err := m.renewer.Run(context.Background()); err != nil {
				log.Errorf("[Scheduler] Auto-renewal error: %v", err)
			}
		}
	}
}

func (m *Manager) archiveWorker(interval time.Duration) {
	defer m.wg.Done()
	log.Infof("[Scheduler] Started audit archive worker (interval: %s)", interval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[Scheduler] Audit archive worker stopping")
			return
		case <-m.archiveTicker.C:
			if !m.acquireLease(archiveLeaseKey, interval) {
				log.Debug("[Scheduler] Audit archive lease held elsewhere, skipping")
				continue
			}
			key, err := m.exporter.Run(context.Background())
			if err != nil {
				log.Errorf("[Scheduler] Audit archive error: %v", err)
				continue
			}
			if key != "" {
				log.Infof("[Scheduler] Audit archive written: %s", key)
			}
		}
	}
}

// acquireLease takes a short Redis lease so only one instance runs a sweep
// per tick. When Redis is unavailable the sweep runs anyway; duplicate sends
// are bounded by the per-deadline dedup gap.
func (m *Manager) acquireLease(key string, interval time.Duration) bool {
	client := cache.GetClient()
	if client == nil {
		return true
	}

	ttl := interval - time.Second
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := client.SetNX(context.Background(), key, m.instanceID, ttl).Result()
	if err != nil {
		log.Warnf("[Scheduler] Lease check failed for %s, running anyway: %v", key, err)
		return true
	}
	return ok
}

func intervalFromEnv(key string, defMinutes int) time.Duration {
	raw := env.GetEnv(key, strconv.Itoa(defMinutes))
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		minutes = defMinutes
	}
	return time.Duration(minutes) * time.Minute
}
