package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/mobipaper/mobicache/internal/artifact"
	"github.com/mobipaper/mobicache/internal/cache"
	"github.com/mobipaper/mobicache/internal/logging"
	"github.com/mobipaper/mobicache/internal/server"
)

// RegisterEntryRoutes 暴露 /entries/:tag/:key 读写接口；:tag 既可以是类型名也可以是后缀。
// /urls/:tag?url=... 与之等价，key 由 artifact.KeyFor(url) 计算，调用方无需自行哈希。
func RegisterEntryRoutes(app *fiber.App, store server.EntryStore, logger logrus.FieldLogger) {
	if app == nil || store == nil {
		return
	}
	log := logging.Component(logger, "admin")

	byKey := entryHandler{store: store, logger: log, parse: parseEntryParams}
	app.Get("/entries/:tag/:key/stat", byKey.stat)
	app.Get("/entries/:tag/:key", byKey.get)
	app.Put("/entries/:tag/:key", byKey.put)
	app.Delete("/entries/:tag/:key", byKey.remove)

	byURL := entryHandler{store: store, logger: log, parse: parseURLParams}
	app.Get("/urls/:tag/stat", byURL.stat)
	app.Get("/urls/:tag", byURL.get)
	app.Put("/urls/:tag", byURL.put)
	app.Delete("/urls/:tag", byURL.remove)
}

type entryHandler struct {
	store  server.EntryStore
	logger *logrus.Entry
	parse  func(c fiber.Ctx) (artifact.Kind, cache.Key, error)
}

type entryStatPayload struct {
	Key       string `json:"key"`
	Artifact  string `json:"artifact"`
	Tag       string `json:"tag"`
	Exists    bool   `json:"exists"`
	CreatedAt int64  `json:"created_at"`
	SizeBytes int64  `json:"size_bytes"`
}

func (h entryHandler) get(c fiber.Ctx) error {
	kind, key, err := h.parse(c)
	if err != nil {
		return writeParamError(c, err)
	}

	data, err := h.store.Get(requestContext(c), key, kind.Suffix)
	h.log(c, key, kind, err == nil).Debug("cache_get")
	if err != nil {
		return writeStoreError(c, err, "cache_read_failed")
	}

	if entry, statErr := h.store.Stat(key, kind.Suffix); statErr == nil {
		c.Set(fiber.HeaderLastModified, entry.ModTime.UTC().Format(http.TimeFormat))
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	return c.Send(data)
}

func (h entryHandler) stat(c fiber.Ctx) error {
	kind, key, err := h.parse(c)
	if err != nil {
		return writeParamError(c, err)
	}

	payload := entryStatPayload{
		Key:      string(key),
		Artifact: kind.Name,
		Tag:      string(kind.Suffix),
	}
	entry, err := h.store.Stat(key, kind.Suffix)
	switch {
	case err == nil:
		payload.Exists = true
		payload.CreatedAt = entry.ModTime.UnixMilli()
		payload.SizeBytes = entry.SizeBytes
	case errors.Is(err, cache.ErrNotFound), errors.Is(err, cache.ErrNotConfigured):
		// 与 CreatedAt 语义一致：不存在时返回纪元时间。
	default:
		return writeStoreError(c, err, "cache_stat_failed")
	}
	return c.JSON(payload)
}

func (h entryHandler) put(c fiber.Ctx) error {
	kind, key, err := h.parse(c)
	if err != nil {
		return writeParamError(c, err)
	}

	err = h.store.Put(requestContext(c), key, kind.Suffix, c.Body(), cache.PutOptions{})
	if err != nil {
		h.log(c, key, kind, false).WithError(err).Warn("cache_put_failed")
		return writeStoreError(c, err, "cache_write_failed")
	}
	h.log(c, key, kind, false).WithField("size_bytes", len(c.Body())).Info("cache_put")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h entryHandler) remove(c fiber.Ctx) error {
	kind, key, err := h.parse(c)
	if err != nil {
		return writeParamError(c, err)
	}

	if err := h.store.Remove(requestContext(c), key, kind.Suffix); err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			h.log(c, key, kind, false).WithError(err).Warn("cache_remove_failed")
		}
		return writeStoreError(c, err, "cache_remove_failed")
	}
	h.log(c, key, kind, true).Info("cache_removed")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h entryHandler) log(c fiber.Ctx, key cache.Key, kind artifact.Kind, hit bool) *logrus.Entry {
	return h.logger.
		WithFields(logging.EntryFields(string(key), string(kind.Suffix), hit)).
		WithField("request_id", server.RequestID(c))
}

var (
	errUnknownArtifact = errors.New("unknown artifact")
	errMissingURL      = errors.New("url query parameter required")
)

func parseEntryParams(c fiber.Ctx) (artifact.Kind, cache.Key, error) {
	kind, ok := artifact.Resolve(c.Params("tag"))
	if !ok {
		return artifact.Kind{}, "", errUnknownArtifact
	}
	key := cache.Key(c.Params("key"))
	if err := cache.ValidateKey(key); err != nil {
		return artifact.Kind{}, "", err
	}
	return kind, key, nil
}

// parseURLParams 从 ?url= 计算 SHA-1 key，与客户端对 URL 的哈希方式一致。
func parseURLParams(c fiber.Ctx) (artifact.Kind, cache.Key, error) {
	kind, ok := artifact.Resolve(c.Params("tag"))
	if !ok {
		return artifact.Kind{}, "", errUnknownArtifact
	}
	raw := c.Query("url")
	if raw == "" {
		return artifact.Kind{}, "", errMissingURL
	}
	return kind, artifact.KeyFor(raw), nil
}

func writeParamError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errUnknownArtifact):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "artifact_unknown"})
	case errors.Is(err, errMissingURL):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url_required"})
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_key"})
}

// writeStoreError 将缓存错误映射为 HTTP 状态；fallback 用于未知 I/O 错误。
func writeStoreError(c fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cache_miss"})
	case errors.Is(err, cache.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "cache_unavailable"})
	case errors.Is(err, cache.ErrInvalidKey), errors.Is(err, cache.ErrInvalidTag):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_key"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
