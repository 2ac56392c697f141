/*
Package server provides HTTP/HTTPS server lifecycle management with
non-blocking startup, graceful shutdown, and system signal handling.

# Overview

The package wraps net/http.Server in a Manager that owns listening,
serving, shutdown, and error propagation. Both plain HTTP and TLS startup
modes are supported, with built-in SIGINT/SIGTERM handling for clean
production stops.

# Core Types

  - Manager: holds the http.Server, net.Listener, and an asynchronous
    error channel, exposing Start/StartTLS/Shutdown/WaitForShutdown.
  - Config: listen address, read/write/idle timeouts, maximum header
    size, connection cap, and graceful shutdown timeout.

# Capabilities

  - Non-blocking startup: Start/StartTLS serve from a background
    goroutine, leaving the caller free.
  - Graceful shutdown: Shutdown drains in-flight requests within the
    configured timeout.
  - Signal handling: WaitForShutdown listens for SIGINT/SIGTERM and
    triggers the shutdown sequence automatically.
  - Error propagation: Errors() exposes the async error channel for
    monitoring serve failures.
  - Connection capping: MaxConnections bounds concurrent connections via
    a limit listener.
  - State queries: IsRunning/Addr report liveness and the listen address.
*/
package server
