/*
Package types provides the shared type contracts of the warden service.

types is the lowest-level public package and depends on no other
package in the module. It defines the structured error taxonomy used by
the boundary, scanner, sandbox, and API layers:

  - Error / ErrorCode: structured errors with HTTP status and
    retryable markers
  - Boundary codes: INVALID_ROOT, PATH_TRAVERSAL
  - Execution codes: BLOCKED_IMPORT, EXECUTION_FAILURE, IO_FAILURE,
    TIMEOUT
  - Service codes: INVALID_REQUEST, UNAUTHORIZED, RATE_LIMITED,
    INTERNAL_ERROR, SERVICE_UNAVAILABLE

Helpers: NewError builder chain (WithCause / WithHTTPStatus /
WithRetryable), GetErrorCode, IsErrorCode, IsRetryable.
*/
package types
