package health

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/duedesk/DueDesk/internal/pkg/cache"
	"github.com/duedesk/DueDesk/internal/pkg/database"
	"github.com/duedesk/DueDesk/internal/pkg/env"
)

// health monitor state
var (
	healthStopCh chan struct{}
)

const cacheKeyPrefix = "health:"

// ComponentHealth represents cached health data for one dependency
type ComponentHealth struct {
	Component string    `json:"component"`
	Healthy   bool      `json:"healthy"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// StartMonitor starts a lightweight heartbeat that caches dependency health in Redis
func StartMonitor() {
	if healthStopCh != nil {
		return
	}
	healthStopCh = make(chan struct{})
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		log.Info("[Health] Monitor started (interval: 60s)")

		// run once immediately
		runHealthCheckOnce()

		for {
			select {
			case <-healthStopCh:
				log.Info("[Health] Monitor stopped")
				return
			case <-ticker.C:
				runHealthCheckOnce()
			}
		}
	}()
}

// StopMonitor stops the heartbeat
func StopMonitor() {
	if healthStopCh != nil {
		close(healthStopCh)
		healthStopCh = nil
	}
}

// Snapshot returns the last cached health for each monitored dependency.
// Components without a cached entry are reported unhealthy.
func Snapshot() []ComponentHealth {
	components := []string{"database", "redis", "smtp"}
	out := make([]ComponentHealth, 0, len(components))
	for _, name := range components {
		raw, err := cache.Get(cacheKeyPrefix + name)
		if err != nil || raw == "" {
			out = append(out, ComponentHealth{Component: name, Healthy: false})
			continue
		}
		var ch ComponentHealth
		if err := json.Unmarshal([]byte(raw), &ch); err != nil {
			out = append(out, ComponentHealth{Component: name, Healthy: false})
			continue
		}
		out = append(out, ch)
	}
	return out
}

func runHealthCheckOnce() {
	store(checkDatabase())
	store(checkRedis())
	store(checkSMTP())
}

func store(ch ComponentHealth) {
	b, _ := json.Marshal(ch)
	if err := cache.Set(cacheKeyPrefix+ch.Component, string(b), 2*time.Minute); err != nil {
		log.Errorf("[Health] Cache set failed for %s: %v", ch.Component, err)
	}
}

func checkDatabase() ComponentHealth {
	ch := ComponentHealth{Component: "database", CheckedAt: time.Now()}
	start := time.Now()

	db := database.GetDB()
	if db == nil {
		ch.Error = "database not initialized"
		return ch
	}
	sqlDB, err := db.DB()
	if err != nil {
		ch.Error = err.Error()
		return ch
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		ch.Error = err.Error()
		return ch
	}
	ch.Healthy = true
	ch.LatencyMS = time.Since(start).Milliseconds()
	return ch
}

func checkRedis() ComponentHealth {
	ch := ComponentHealth{Component: "redis", CheckedAt: time.Now()}
	start := time.Now()

	client := cache.GetClient()
	if client == nil {
		ch.Error = "redis not initialized"
		return ch
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		ch.Error = err.Error()
		return ch
	}
	ch.Healthy = true
	ch.LatencyMS = time.Since(start).Milliseconds()
	return ch
}

// checkSMTP only probes TCP reachability; a full handshake per minute would
// spam the relay's logs.
func checkSMTP() ComponentHealth {
	ch := ComponentHealth{Component: "smtp", CheckedAt: time.Now()}
	start := time.Now()

	host := env.GetEnv("SMTP_HOST", "")
	if host == "" {
		ch.Error = "SMTP_HOST not set"
		return ch
	}
	addr := net.JoinHostPort(host, env.GetEnv("SMTP_PORT", "587"))
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		ch.Error = err.Error()
		return ch
	}
	conn.Close()
	ch.Healthy = true
	ch.LatencyMS = time.Since(start).Milliseconds()
	return ch
}
