/*
Package metrics provides Prometheus-based metrics collection covering the
HTTP API, boundary validation, code scanning, sandboxed execution, and
cache dimensions.

# Overview

The package funnels all instrumentation through a single Collector that
registers its metrics via promauto, so callers never manage a Registry by
hand. Metrics are isolated per namespace and grouped with labels, ready
for Grafana dashboards and alerting.

# Core Types

  - Collector: holds the Counter and Histogram vectors grouped by
    concern, and exposes one Record method per event kind.

# Capabilities

  - HTTP metrics: request totals, latency, and request/response body sizes
    labelled by method/path, with status codes bucketed as 2xx/3xx/4xx/5xx.
  - Boundary metrics: path validation totals labelled by outcome
    (allowed/blocked).
  - Scanner metrics: scan totals by verdict, scan latency, per-finding
    counts labelled by category/severity, and a compliance score
    distribution over 0-100.
  - Sandbox metrics: execution totals and latency labelled by status
    (success/failure/blocked/timeout), plus captured output size.
  - Cache metrics: hit and miss counts labelled by cache_type.
*/
package metrics
