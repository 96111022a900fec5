package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/alert-comb/app/alert"
	"github.com/lysyi3m/alert-comb/app/database"
	"github.com/lysyi3m/alert-comb/app/feed"
	"github.com/lysyi3m/alert-comb/app/tasks"
)

const (
	allSourcesFeed  = "all"
	defaultSyncDays = 7
	maxSyncDays     = 365
)

func NewHandler(alerts AlertReader, status StatusProvider, syncer tasks.Syncer,
	generator GeneratorInterface, configCache ConfigStore,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		alerts:      alerts,
		status:      status,
		syncer:      syncer,
		generator:   generator,
		configCache: configCache,
		scheduler:   scheduler,
		reporters:   make(map[string]HealthReporter),
		version:     version,
	}
}

// AddHealthReporter includes a dependency in the /health response.
func (h *Handler) AddHealthReporter(name string, reporter HealthReporter) {
	h.reporters[name] = reporter
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	channel := feed.Channel{
		Name:        allSourcesFeed,
		Title:       "Regulatory alerts",
		Description: "Recalls, outbreaks, enforcement actions and rulemaking from U.S. agencies",
	}
	filter := database.AlertFilter{Limit: 100}

	if name != allSourcesFeed {
		src, ok := alert.ParseSource(name)
		if !ok {
			slog.Error("Source not found", "source", name)
			c.Status(http.StatusNotFound)
			return
		}
		filter.Source = src
		channel.Name = src.ConfigName()
		channel.Title = fmt.Sprintf("%s alerts", src)
		channel.Description = ""
	}

	if severity := c.Query("severity"); severity != "" {
		filter.Severity = alert.Severity(severity)
	}

	alerts, err := h.alerts.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_alerts", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(channel, alerts)
	if err != nil {
		slog.Error("RSS generation error", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(alerts)))
	c.Header("X-Feed-Name", channel.Name)

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK

	health := map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"version":               h.version,
		"loaded_configurations": h.configCache.GetConfigCount(),
	}

	if err := h.alerts.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		health["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		health["database"] = map[string]interface{}{"status": "healthy"}
	}

	for name, reporter := range h.reporters {
		health[name] = reporter.Health(ctx)
	}

	c.JSON(status, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	status, err := h.status.GetSyncStatus(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_sync_status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sync_status":  status,
		"last_results": h.status.LastResults(),
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()
	last := h.status.LastResults()

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]map[string]interface{}, 0, len(configs))
	for _, name := range names {
		sourceConfig := configs[name]
		info := map[string]interface{}{
			"name":             sourceConfig.Name,
			"source":           sourceConfig.Source(),
			"url":              sourceConfig.URL,
			"enabled":          sourceConfig.Settings.Enabled,
			"days_back":        sourceConfig.Settings.DaysBack,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(sourceConfig.Filters),
		}

		if result, ok := last[sourceConfig.Source()]; ok {
			info["last_sync"] = gin.H{
				"status":   result.Status,
				"success":  result.Success,
				"end_time": result.EndTime,
				"errors":   len(result.Errors),
			}
		}

		sources = append(sources, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIListAlerts(c *gin.Context) {
	filter := database.AlertFilter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
	}

	if name := c.Query("source"); name != "" {
		src, ok := alert.ParseSource(name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown source", "source": name})
			return
		}
		filter.Source = src
	}

	if severity := c.Query("severity"); severity != "" {
		filter.Severity = alert.Severity(severity)
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since parameter, expected RFC3339"})
			return
		}
		filter.Since = &t
	} else if days := c.Query("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
			return
		}
		t := time.Now().AddDate(0, 0, -n)
		filter.Since = &t
	}

	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		filter.Limit = n
	}

	alerts, err := h.alerts.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_alerts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

func (h *Handler) APISyncSource(c *gin.Context) {
	name := c.Param("name")

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	days, ok := syncDays(c, sourceConfig.Settings.DaysBack)
	if !ok {
		return
	}

	task := tasks.NewSyncSourceTask(sourceConfig.Name, days, h.syncer)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing sync task", "source", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Sync task enqueued",
		"source":  sourceConfig.Name,
		"task":    gin.H{"id": task.ID, "type": task.Type, "days_back": days},
	})
}

func (h *Handler) APISyncAll(c *gin.Context) {
	days, ok := syncDays(c, defaultSyncDays)
	if !ok {
		return
	}

	task := tasks.NewSyncAllTask(days, h.syncer)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing sync all task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Sync of all sources enqueued",
		"task":    gin.H{"id": task.ID, "type": task.Type, "days_back": days},
	})
}

func (h *Handler) APIReloadSource(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded",
		"source": gin.H{
			"name":    sourceConfig.Name,
			"enabled": sourceConfig.Settings.Enabled,
			"filters": len(sourceConfig.Filters),
		},
	})
}

// syncDays reads the days query parameter. It writes the error response
// itself and reports false when the value is invalid.
func syncDays(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return fallback, true
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 || days > maxSyncDays {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid days parameter, expected 0-%d", maxSyncDays),
		})
		return 0, false
	}
	return days, true
}
