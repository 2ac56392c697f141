// Package api defines the wire types of the Warden HTTP surface.
//
// # API Overview
//
// Warden exposes a small sidecar API for coding agents:
//   - Path validation against a project boundary
//   - Static vulnerability scanning of code and configuration
//   - Sandboxed script execution, blocking or streamed
//   - Audit trail queries and health monitoring
//
// # Wire format
//
// Request and response fields use camelCase names (projectRoot,
// resolvedPath, complianceScore, authorizedImports, executionTime) so
// existing sidecar clients keep working unchanged.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8766
package api
