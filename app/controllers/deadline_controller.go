package controllers

import (
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/duedesk/DueDesk/app/models"
	"github.com/duedesk/DueDesk/app/repository"
	"github.com/duedesk/DueDesk/internal/pkg/cache"
	"github.com/duedesk/DueDesk/internal/pkg/deadline"
	"github.com/duedesk/DueDesk/internal/pkg/entitlements"
	"github.com/duedesk/DueDesk/internal/pkg/quota"
	"github.com/duedesk/DueDesk/internal/pkg/statistics"
	"github.com/duedesk/DueDesk/internal/pkg/usercontext"
)

type deadlineRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	Category           string `json:"category"`
	DueDate            string `json:"due_date"`
	Severity           string `json:"severity"`
	Recurrence         string `json:"recurrence"`
	CustomIntervalDays int    `json:"custom_interval_days"`
	AutoRenew          bool   `json:"auto_renew"`
	TenantID           *uint  `json:"tenant_id"`
	Cost               string `json:"cost"`
	ReferenceNumber    string `json:"reference_number"`
	Authority          string `json:"authority"`
}

// deadlineResponse decorates a stored deadline with its derived fields.
type deadlineResponse struct {
	models.Deadline
	Urgency      deadline.Urgency `json:"urgency"`
	DaysUntilDue int              `json:"days_until_due"`
}

func toDeadlineResponse(d models.Deadline, today time.Time) deadlineResponse {
	return deadlineResponse{
		Deadline:     d,
		Urgency:      d.Urgency(today),
		DaysUntilDue: d.DaysUntilDue(today),
	}
}

func newQuotaGuard(repos *repository.Repositories) *quota.Guard {
	var counter quota.Counter
	if client := cache.GetClient(); client != nil {
		counter = quota.NewRedisCounter(client)
	}
	return quota.NewGuard(repos.Deadline, counter)
}

// HandleDeadlineCreate validates and stores a new deadline for the current user.
func HandleDeadlineCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	var req deadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	item, err := deadlineFromRequest(&req)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	item.UserID = userCtx.UserID

	if item.TenantID != nil {
		member, err := repos.Tenant.IsMember(*item.TenantID, userCtx.UserID)
		if err != nil || !member {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Organization not found")
		}
	}

	plan := entitlements.NormalizePlan(userCtx.Plan)
	guard := newQuotaGuard(repos)
	if err := guard.CheckRecurring(plan, item.Recurrence); err != nil {
		return jsonError(c, fiber.StatusPaymentRequired, "plan_upgrade_required", err.Error())
	}
	if err := guard.CheckCreate(c.UserContext(), userCtx.UserID, plan); err != nil {
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			return jsonError(c, fiber.StatusPaymentRequired, "quota_exceeded", err.Error())
		case errors.Is(err, quota.ErrRateLimited):
			return jsonError(c, fiber.StatusTooManyRequests, "rate_limited", err.Error())
		default:
			log.Printf("quota check failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not verify quota")
		}
	}

	if err := repos.Deadline.Create(item); err != nil {
		log.Printf("deadline create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not create deadline")
	}

	today := deadline.Date(time.Now())
	return c.Status(fiber.StatusCreated).JSON(toDeadlineResponse(*item, today))
}

// HandleDeadlineList returns all deadlines visible to the current user,
// sorted most urgent first.
func HandleDeadlineList(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	items, err := repos.Deadline.ListVisibleToUser(userCtx.UserID)
	if err != nil {
		log.Printf("deadline list failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load deadlines")
	}

	today := deadline.Date(time.Now())
	category := strings.TrimSpace(c.Query("category"))
	urgencyFilter := strings.TrimSpace(c.Query("urgency"))

	responses := make([]deadlineResponse, 0, len(items))
	for i := range items {
		resp := toDeadlineResponse(items[i], today)
		if category != "" && resp.Category != category {
			continue
		}
		if urgencyFilter != "" && string(resp.Urgency) != urgencyFilter {
			continue
		}
		responses = append(responses, resp)
	}

	sort.SliceStable(responses, func(i, j int) bool {
		ri, rj := responses[i].Urgency.Rank(), responses[j].Urgency.Rank()
		if ri != rj {
			return ri < rj
		}
		return responses[i].DueDate.Before(responses[j].DueDate)
	})

	return c.JSON(fiber.Map{
		"deadlines": responses,
		"total":     len(responses),
	})
}

// HandleDeadlineStats returns the per-tier counts for the current user.
func HandleDeadlineStats(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	items, err := repos.Deadline.ListVisibleToUser(userCtx.UserID)
	if err != nil {
		log.Printf("deadline stats failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load deadlines")
	}

	today := deadline.Date(time.Now())
	return c.JSON(statistics.ComputeDashboardStats(items, today))
}

// HandleDeadlineGet returns a single visible deadline by UUID.
func HandleDeadlineGet(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	item, err := repos.Deadline.GetVisibleByUUID(c.Params("uuid"), userCtx.UserID)
	if err != nil {
		return deadlineLookupError(c, err)
	}

	today := deadline.Date(time.Now())
	return c.JSON(toDeadlineResponse(*item, today))
}

// HandleDeadlineUpdate overwrites a visible deadline's editable fields.
func HandleDeadlineUpdate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	item, err := repos.Deadline.GetVisibleByUUID(c.Params("uuid"), userCtx.UserID)
	if err != nil {
		return deadlineLookupError(c, err)
	}

	var req deadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	updated, err := deadlineFromRequest(&req)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	plan := entitlements.NormalizePlan(userCtx.Plan)
	if err := newQuotaGuard(repos).CheckRecurring(plan, updated.Recurrence); err != nil {
		return jsonError(c, fiber.StatusPaymentRequired, "plan_upgrade_required", err.Error())
	}

	if updated.TenantID != nil && (item.TenantID == nil || *updated.TenantID != *item.TenantID) {
		member, err := repos.Tenant.IsMember(*updated.TenantID, userCtx.UserID)
		if err != nil || !member {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Organization not found")
		}
	}

	item.Title = updated.Title
	item.Description = updated.Description
	item.Category = updated.Category
	item.DueDate = updated.DueDate
	item.Severity = updated.Severity
	item.Recurrence = updated.Recurrence
	item.CustomIntervalDays = updated.CustomIntervalDays
	item.AutoRenew = updated.AutoRenew
	item.TenantID = updated.TenantID
	item.Cost = updated.Cost
	item.ReferenceNumber = updated.ReferenceNumber
	item.Authority = updated.Authority

	if err := repos.Deadline.Update(item); err != nil {
		log.Printf("deadline update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not update deadline")
	}

	today := deadline.Date(time.Now())
	return c.JSON(toDeadlineResponse(*item, today))
}

// HandleDeadlineDelete removes a deadline. Only the owner may delete.
func HandleDeadlineDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	item, err := repos.Deadline.GetVisibleByUUID(c.Params("uuid"), userCtx.UserID)
	if err != nil {
		return deadlineLookupError(c, err)
	}
	if item.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Only the owner can delete a deadline")
	}

	if err := repos.Deadline.Delete(item.ID); err != nil {
		log.Printf("deadline delete failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not delete deadline")
	}
	return c.JSON(fiber.Map{"success": true})
}

// deadlineFromRequest parses and validates the request payload into a model.
func deadlineFromRequest(req *deadlineRequest) (*models.Deadline, error) {
	dueDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.DueDate))
	if err != nil {
		return nil, errors.New("due_date must be formatted as YYYY-MM-DD")
	}

	item := &models.Deadline{
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		Category:           defaultString(req.Category, models.CategoryOther),
		DueDate:            dueDate,
		Severity:           defaultString(req.Severity, models.SeverityMedium),
		Recurrence:         defaultString(req.Recurrence, string(deadline.RecurrenceNone)),
		CustomIntervalDays: req.CustomIntervalDays,
		AutoRenew:          req.AutoRenew,
		TenantID:           req.TenantID,
		Cost:               req.Cost,
		ReferenceNumber:    req.ReferenceNumber,
		Authority:          req.Authority,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func deadlineLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Deadline not found")
	}
	log.Printf("deadline lookup failed: %v", err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load deadline")
}
