/*
Package boundary enforces project-root isolation for all file access.

A Guard owns one canonical project root and proves, per call, that a
candidate path stays inside it. Resolution is component-wise: symlinks
are resolved before any ".." collapsing, so a link pointing outside the
root cannot be neutralized lexically, and containment is only ever
checked on the fully canonical form. Non-existent leaves are tolerated
so write targets can be validated before they exist.

Operations:

  - ValidatePath: canonicalize and prove containment
  - IsSafePath: same check as a boolean
  - RelativePath: validated path relative to the root
  - ListMatching: glob listing rooted at the project root
  - WithPinnedDir: run a function with the process working directory
    pinned to the root (serialized process-wide)

Every decision is logged and optionally forwarded to an AuditSink.
*/
package boundary
