/*
Package sandbox executes untrusted code inside a restricted Starlark
environment bound to one project boundary.

Execution flow per request: a textual deny-list check over the raw
source, then evaluation in a hermetic interpreter whose predeclared
namespace exposes only vetted modules (json, math, time) and three
capabilities routed through the boundary guard: secure_read_file,
secure_write_file, and get_project_root. The interpreter has no ambient
file, network, or process access; the injected capabilities are the
only bridge to the host.

Deadlines are enforced: evaluation runs in a cancellable unit that is
stopped at the timeout with partial output preserved. Output is capped
at a configured byte budget, runaway programs are bounded by a step
limit, and concurrent executions are limited by a weighted semaphore.

The authorized-import allow-list is merged from defaults plus caller
additions and reported for observability, but only the deny list gates
execution.
*/
package sandbox
