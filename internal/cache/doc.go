/*
Package cache provides Redis backed caching for derived security
results, mainly scan reports keyed by a digest of the scanned source.

# Overview

The package wraps the go-redis client behind a Manager that owns the
connection lifecycle: initialization, background health checks and
graceful shutdown. Values are stored either as raw strings or as JSON
through the GetJSON/SetJSON helpers.

Scan reports are deterministic for a given source text, which makes
them safe to cache. ScanKey derives the cache key from a SHA-256 digest
of the source so that no code ever appears in key names.

# Core types

  - Manager: holds the Redis client and pool configuration, and offers
    Get/Set/Delete/Exists plus the JSON convenience methods.
  - Config: address, credentials, pool sizing, default TTL and health
    check interval.

ErrCacheMiss is the sentinel for absent keys; IsCacheMiss tests for it.
*/
package cache
