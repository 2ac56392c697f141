/*
Package handlers implements the request handlers of the Warden HTTP
API.

The sidecar compatible routes (/health, /validate/path, /validate/code,
/validate/owasp, /execute) write their payloads bare in the wire shapes
of package api, so existing clients keep working unchanged. Service
level routes (/version, /ready, /audit/events) and every error reply
use the Response envelope.

# Core types

  - ValidateHandler: path boundary checks and vulnerability scans
  - ExecuteHandler: sandboxed execution, blocking and WebSocket
    streamed
  - AuditHandler: audit trail queries
  - HealthHandler: liveness, readiness and version routes
  - Response: envelope (success + data + error + timestamp)
  - ResponseWriter: wraps http.ResponseWriter to capture the status

Handlers take their hard dependencies at construction and pick up
optional collaborators (cache, metrics, audit) through With* chain
methods; a nil collaborator disables that concern. Rejections the
sidecar treats as regular outcomes (path outside the boundary, blocked
import, script failure, timeout) are 200 responses with valid=false or
success=false, never HTTP errors.
*/
package handlers
