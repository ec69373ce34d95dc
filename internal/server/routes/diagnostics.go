package routes

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/mobipaper/mobicache/internal/artifact"
	"github.com/mobipaper/mobicache/internal/cache"
	"github.com/mobipaper/mobicache/internal/logging"
	"github.com/mobipaper/mobicache/internal/server"
)

// RegisterDiagnosticsRoutes 暴露 /-/stats、/-/purge 与 /-/artifacts 诊断接口。
func RegisterDiagnosticsRoutes(app *fiber.App, store server.EntryStore, logger logrus.FieldLogger) {
	if app == nil || store == nil {
		return
	}
	log := logging.Component(logger, "admin")

	app.Get("/-/stats", func(c fiber.Ctx) error {
		return c.JSON(encodeStats(store))
	})

	app.Post("/-/purge", func(c fiber.Ctx) error {
		result, err := store.Purge(requestContext(c))
		if errors.Is(err, cache.ErrNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "cache_unavailable"})
		}
		if err != nil {
			log.WithError(err).WithField("request_id", server.RequestID(c)).Warn("cache_purge_failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_purge_failed"})
		}

		fields := logging.PurgeFields(result)
		fields["request_id"] = server.RequestID(c)
		log.WithFields(fields).Info("cache_purge_requested")
		return c.JSON(encodePurge(result))
	})

	app.Get("/-/artifacts", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"artifacts": artifact.List()})
	})
}

type statsPayload struct {
	Configured     bool     `json:"configured"`
	Dir            string   `json:"dir"`
	SizeMB         float64  `json:"size_mb"`
	MaxSizeMB      float64  `json:"max_size_mb"`
	RecognizedTags []string `json:"recognized_tags"`
}

type purgePayload struct {
	cache.PurgeResult
	Error string `json:"error,omitempty"`
}

func encodeStats(store server.EntryStore) statsPayload {
	tags := store.RecognizedTags()
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, string(tag))
	}
	return statsPayload{
		Configured:     store.Configured(),
		Dir:            store.Dir(),
		SizeMB:         store.Size(),
		MaxSizeMB:      store.MaxSize(),
		RecognizedTags: names,
	}
}

func encodePurge(result cache.PurgeResult) purgePayload {
	payload := purgePayload{PurgeResult: result}
	if result.Err != nil {
		payload.Error = result.Err.Error()
	}
	return payload
}
