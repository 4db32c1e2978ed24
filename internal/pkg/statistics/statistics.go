package statistics

import (
	"encoding/json"
	"log"
	"time"

	"github.com/duedesk/DueDesk/app/models"
	"github.com/duedesk/DueDesk/internal/pkg/cache"
	"github.com/duedesk/DueDesk/internal/pkg/database"
	"github.com/duedesk/DueDesk/internal/pkg/deadline"
)

const (
	CacheKeyUsersTotal     = "statistics:users:total"
	CacheKeyDeadlinesTotal = "statistics:deadlines:total"
	CacheExpiration        = 5 * time.Minute
)

// DashboardStats breaks a user's visible deadlines down by urgency tier.
type DashboardStats struct {
	Total    int `json:"total"`
	Overdue  int `json:"overdue"`
	Critical int `json:"critical"`
	Urgent   int `json:"urgent"`
	Warning  int `json:"warning"`
	Upcoming int `json:"upcoming"`
	Safe     int `json:"safe"`
	DueIn7   int `json:"due_in_7_days"`
	DueIn30  int `json:"due_in_30_days"`
}

// ComputeDashboardStats classifies each deadline against today's date.
func ComputeDashboardStats(deadlines []models.Deadline, today time.Time) DashboardStats {
	stats := DashboardStats{Total: len(deadlines)}
	for i := range deadlines {
		days := deadlines[i].DaysUntilDue(today)
		switch deadline.ClassifyDays(days) {
		case deadline.UrgencyOverdue:
			stats.Overdue++
		case deadline.UrgencyCritical:
			stats.Critical++
		case deadline.UrgencyUrgent:
			stats.Urgent++
		case deadline.UrgencyWarning:
			stats.Warning++
		case deadline.UrgencyUpcoming:
			stats.Upcoming++
		default:
			stats.Safe++
		}
		if days >= 0 && days <= 7 {
			stats.DueIn7++
		}
		if days >= 0 && days <= 30 {
			stats.DueIn30++
		}
	}
	return stats
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	return cachedCount(CacheKeyUsersTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.User{}).Count(&count).Error
		return count, err
	})
}

// GetTotalDeadlines returns the total number of deadlines from cache or database
func GetTotalDeadlines() int {
	return cachedCount(CacheKeyDeadlinesTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Deadline{}).Count(&count).Error
		return count, err
	})
}

// cachedCount reads a counter from cache, falling back to the given query and
// refreshing the cache on a miss.
func cachedCount(key string, query func() (int64, error)) int {
	val, err := cache.Get(key)
	if err == nil {
		var count int64
		if json.Unmarshal([]byte(val), &count) == nil {
			return int(count)
		}
	}

	count, err := query()
	if err != nil {
		log.Printf("Error counting for %s: %v", key, err)
		return 0
	}

	encoded, _ := json.Marshal(count)
	if err := cache.Set(key, string(encoded), CacheExpiration); err != nil {
		log.Printf("Error caching %s: %v", key, err)
	}
	return int(count)
}
