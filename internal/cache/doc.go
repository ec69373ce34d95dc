// Package cache implements the bounded disk store that keeps downloaded
// artifacts under <root>/<dir>/<key>.<tag>. Writes go through a temp file +
// rename so readers and the evictor only ever observe fully formed entries.
// The store accounts size by scanning files whose tag is in the recognized
// set, and Purge trims the oldest (by mtime) of those files down to a quarter
// of the configured budget once the budget is exceeded.
//
// An unconfigured Store behaves like an always-empty cache: every read is a
// miss and every write fails with ErrNotConfigured. Callers are expected to
// treat any error as a miss.
package cache
