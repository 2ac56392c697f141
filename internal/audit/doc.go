/*
Package audit provides internal audit trail recording. This package is
internal and should not be imported by external projects.

Every boundary decision, code scan, and sandbox execution produces one
immutable Event. Events are always written to the structured log;
when a database handle is supplied they are additionally persisted
through a bounded asynchronous pipeline so that audit storage can never
block a request. When the buffer is full, events are dropped and
counted rather than queued.

# Core types

  - Event: one audit record (kind, decision, subject, detail, duration).
  - Service: the recorder. It satisfies the audit sink interfaces of
    the boundary and sandbox packages, and exposes Recent for
    retrieval.
*/
package audit
