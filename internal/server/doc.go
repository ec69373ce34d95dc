// Package server hosts the Fiber admin service that exposes the disk cache
// over HTTP: request-id and access-log middleware, a JSON error handler, and
// the EntryStore contract that route packages program against. The cache
// engine itself has no network surface; this package is an optional shell
// used for inspection, manual purges and feeding the cache from other
// processes on the same host.
package server
