package boundary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bt1zar/warden/types"
)

// AuditSink receives boundary decisions as they are made. Implementations
// must be safe for concurrent use and must not block the caller.
type AuditSink interface {
	PathDecision(root, path string, allowed bool, detail string)
}

// Guard validates that file paths stay inside one project root. The root
// is canonicalized once at construction and never changes afterwards.
type Guard struct {
	root   string
	logger *zap.Logger
	audit  AuditSink
}

// pinnedMu serializes WithPinnedDir across the whole process. The working
// directory is process-global state; concurrent pins against different
// roots would observe each other without this.
var pinnedMu sync.Mutex

// NewGuard creates a Guard for the given project root. The root must
// exist; it is stored in canonical absolute form.
func NewGuard(root string, logger *zap.Logger) (*Guard, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "boundary"))

	if root == "" {
		return nil, types.NewError(types.ErrInvalidRoot, "project root is empty")
	}
	if strings.ContainsRune(root, 0) {
		return nil, types.NewError(types.ErrInvalidRoot, "project root contains a null byte")
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewError(types.ErrInvalidRoot,
				fmt.Sprintf("project root does not exist: %s", root))
		}
		return nil, types.NewError(types.ErrInvalidRoot,
			fmt.Sprintf("project root is not accessible: %s", root)).WithCause(err)
	}

	abs, err := absolute(root)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRoot,
			fmt.Sprintf("cannot resolve project root: %s", root)).WithCause(err)
	}
	canonical, err := resolvePath(abs)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRoot,
			fmt.Sprintf("cannot resolve project root: %s", root)).WithCause(err)
	}

	g := &Guard{root: canonical, logger: logger}
	g.logger.Info("project boundary initialized", zap.String("root", canonical))
	return g, nil
}

// WithAudit attaches an audit sink and returns the guard for chaining.
func (g *Guard) WithAudit(sink AuditSink) *Guard {
	g.audit = sink
	return g
}

// Root returns the canonical absolute project root.
func (g *Guard) Root() string {
	return g.root
}

// ValidatePath canonicalizes path and proves it stays inside the project
// root. Relative paths are joined to the root first. The returned path is
// absolute and symlink-free. Escapes fail with a PATH_TRAVERSAL error.
func (g *Guard) ValidatePath(path string) (string, error) {
	raw := path

	if strings.ContainsRune(path, 0) {
		g.logger.Warn("path contains null byte", zap.String("path", raw))
		g.record(raw, false, "null byte in path")
		return "", types.NewError(types.ErrPathTraversal,
			fmt.Sprintf("invalid path: %s", raw))
	}
	if !filepath.IsAbs(path) {
		// Raw concatenation on purpose: Join would collapse ".." before
		// symlinks are resolved, which is exactly the bypass resolvePath
		// exists to prevent.
		path = g.root + string(filepath.Separator) + path
	}

	resolved, err := resolvePath(path)
	if err != nil {
		g.logger.Warn("path resolution failed", zap.String("path", raw), zap.Error(err))
		g.record(raw, false, "resolution failed")
		return "", types.NewError(types.ErrPathTraversal,
			fmt.Sprintf("invalid path: %s", raw)).WithCause(err)
	}
	if !g.contains(resolved) {
		g.logger.Warn("path traversal attempt blocked",
			zap.String("path", raw),
			zap.String("resolved", resolved))
		g.record(raw, false, "outside project boundary")
		return "", types.NewError(types.ErrPathTraversal,
			fmt.Sprintf("access denied: %s is outside project boundary", raw))
	}

	g.logger.Debug("path validated",
		zap.String("path", raw),
		zap.String("resolved", resolved))
	g.record(raw, true, "")
	return resolved, nil
}

// IsSafePath reports whether path validates against the project root.
func (g *Guard) IsSafePath(path string) bool {
	_, err := g.ValidatePath(path)
	return err == nil
}

// RelativePath validates path and returns it relative to the root.
func (g *Guard) RelativePath(path string) (string, error) {
	resolved, err := g.ValidatePath(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(g.root, resolved)
	if err != nil {
		return "", types.NewError(types.ErrPathTraversal,
			fmt.Sprintf("invalid path: %s", path)).WithCause(err)
	}
	return rel, nil
}

// ListMatching lists paths under the project root matching a glob
// pattern. Failures yield an empty slice, never an error: listing is a
// convenience, not a security decision.
func (g *Guard) ListMatching(pattern string) []string {
	joined := filepath.Join(g.root, pattern)
	if joined != g.root && !strings.HasPrefix(joined, g.prefix()) {
		g.logger.Warn("glob pattern escapes project root", zap.String("pattern", pattern))
		return []string{}
	}
	matches, err := filepath.Glob(joined)
	if err != nil {
		g.logger.Warn("glob failed", zap.String("pattern", pattern), zap.Error(err))
		return []string{}
	}
	if matches == nil {
		return []string{}
	}
	return matches
}

// WithPinnedDir runs fn with the process working directory pinned to the
// project root, restoring the previous directory on every exit path. All
// pins in the process are serialized; prefer passing validated absolute
// paths over relying on the working directory.
func (g *Guard) WithPinnedDir(fn func() error) error {
	pinnedMu.Lock()
	defer pinnedMu.Unlock()

	prev, err := os.Getwd()
	if err != nil {
		return types.NewError(types.ErrIOFailure, "cannot read working directory").WithCause(err)
	}
	if err := os.Chdir(g.root); err != nil {
		return types.NewError(types.ErrIOFailure,
			fmt.Sprintf("cannot pin working directory to %s", g.root)).WithCause(err)
	}
	g.logger.Info("working directory pinned", zap.String("root", g.root))
	defer func() {
		if err := os.Chdir(prev); err != nil {
			g.logger.Error("failed to restore working directory",
				zap.String("dir", prev), zap.Error(err))
			return
		}
		g.logger.Debug("working directory restored", zap.String("dir", prev))
	}()

	return fn()
}

func (g *Guard) contains(resolved string) bool {
	if resolved == g.root {
		return true
	}
	return strings.HasPrefix(resolved, g.prefix())
}

// prefix returns the root with a trailing separator for containment
// comparisons; a bare HasPrefix against the root would let
// "/project-evil" pass for root "/project".
func (g *Guard) prefix() string {
	if strings.HasSuffix(g.root, string(filepath.Separator)) {
		return g.root
	}
	return g.root + string(filepath.Separator)
}

func (g *Guard) record(path string, allowed bool, detail string) {
	if g.audit != nil {
		g.audit.PathDecision(g.root, path, allowed, detail)
	}
}

// absolute makes path absolute against the current working directory
// without cleaning it; ".." collapse is left to resolvePath.
func absolute(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return wd + string(filepath.Separator) + path, nil
}

// resolvePath returns the canonical absolute form of an absolute path:
// symlinks resolved, "." and ".." eliminated. When the whole path exists
// a single EvalSymlinks call settles it. Otherwise the path is walked
// component by component so that symlinks are resolved before any ".."
// is applied. Missing components are joined lexically, which lets write
// targets validate before creation, but every component is still offered
// to EvalSymlinks, because a ".." after a missing component can step back
// into existing, possibly symlinked, territory.
func resolvePath(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	sep := string(filepath.Separator)
	resolved := sep
	for _, part := range strings.Split(path, sep) {
		if part == "" || part == "." {
			continue
		}
		next := filepath.Join(resolved, part)
		r, err := filepath.EvalSymlinks(next)
		if err == nil {
			resolved = r
			continue
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = next
	}
	return resolved, nil
}
