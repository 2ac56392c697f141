package boundary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bt1zar/warden/types"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := NewGuard(t.TempDir(), nil)
	require.NoError(t, err)
	return g
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewGuard(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		_, err := NewGuard(filepath.Join(t.TempDir(), "nope"), nil)
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidRoot, types.GetErrorCode(err))
	})

	t.Run("empty root", func(t *testing.T) {
		_, err := NewGuard("", nil)
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidRoot, types.GetErrorCode(err))
	})

	t.Run("root is canonicalized", func(t *testing.T) {
		tmp := t.TempDir()
		sub := filepath.Join(tmp, "sub")
		require.NoError(t, os.Mkdir(sub, 0o755))

		g, err := NewGuard(filepath.Join(tmp, "sub", "..", "sub"), nil)
		require.NoError(t, err)

		want, err := filepath.EvalSymlinks(sub)
		require.NoError(t, err)
		assert.Equal(t, want, g.Root())
	})

	t.Run("symlinked root resolves to target", func(t *testing.T) {
		tmp := t.TempDir()
		real := filepath.Join(tmp, "real")
		require.NoError(t, os.Mkdir(real, 0o755))
		link := filepath.Join(tmp, "link")
		require.NoError(t, os.Symlink(real, link))

		g, err := NewGuard(link, nil)
		require.NoError(t, err)

		want, err := filepath.EvalSymlinks(real)
		require.NoError(t, err)
		assert.Equal(t, want, g.Root())
	})
}

func TestGuard_ValidatePath(t *testing.T) {
	g := newTestGuard(t)
	root := g.Root()

	tests := []struct {
		name string
		path string
		want string
	}{
		{"relative file", "file.txt", filepath.Join(root, "file.txt")},
		{"nested missing leaf", "a/b/c.txt", filepath.Join(root, "a", "b", "c.txt")},
		{"dot dot staying inside", "sub/../file.txt", filepath.Join(root, "file.txt")},
		{"absolute inside", filepath.Join(root, "x.txt"), filepath.Join(root, "x.txt")},
		{"root itself", ".", root},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.ValidatePath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuard_ValidatePath_Escapes(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name string
		path string
	}{
		{"parent escape", "../outside.txt"},
		{"deep escape", "../../etc/passwd"},
		{"absolute outside", "/etc/passwd"},
		{"escape through subdir", "sub/../../outside"},
		{"escape through missing dirs", "missing/deeper/../../../outside"},
		{"null byte", "bad\x00name"},
		{"parent directory", filepath.Dir(g.Root())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.ValidatePath(tt.path)
			require.Error(t, err)
			assert.Equal(t, types.ErrPathTraversal, types.GetErrorCode(err))
		})
	}
}

// A symlink inside the root pointing outside must be rejected even
// though the raw path looks contained; only resolution catches it.
func TestGuard_ValidatePath_SymlinkEscape(t *testing.T) {
	g := newTestGuard(t)
	outside := t.TempDir()

	secret := filepath.Join(outside, "secret.txt")
	writeFile(t, secret, "secret")
	require.NoError(t, os.Symlink(secret, filepath.Join(g.Root(), "link.txt")))

	_, err := g.ValidatePath("link.txt")
	require.Error(t, err)
	assert.Equal(t, types.ErrPathTraversal, types.GetErrorCode(err))

	// Same through a symlinked directory with a not-yet-existing leaf:
	// the write target resolves outside the root and must be rejected.
	require.NoError(t, os.Symlink(outside, filepath.Join(g.Root(), "extdir")))
	_, err = g.ValidatePath("extdir/new.txt")
	require.Error(t, err)
	assert.Equal(t, types.ErrPathTraversal, types.GetErrorCode(err))

	// A missing component followed by ".." steps back onto the symlink;
	// it must still be resolved, not compared lexically.
	_, err = g.ValidatePath("ghost/../link.txt")
	require.Error(t, err)
	assert.Equal(t, types.ErrPathTraversal, types.GetErrorCode(err))
}

func TestGuard_ValidatePath_SymlinkInside(t *testing.T) {
	g := newTestGuard(t)

	target := filepath.Join(g.Root(), "data", "real.txt")
	writeFile(t, target, "ok")
	require.NoError(t, os.Symlink(target, filepath.Join(g.Root(), "alias.txt")))

	got, err := g.ValidatePath("alias.txt")
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestGuard_IsSafePath(t *testing.T) {
	g := newTestGuard(t)

	assert.True(t, g.IsSafePath("notes/today.md"))
	assert.True(t, g.IsSafePath("."))
	assert.False(t, g.IsSafePath("../escape"))
	assert.False(t, g.IsSafePath("/etc/shadow"))
}

func TestGuard_RelativePath(t *testing.T) {
	g := newTestGuard(t)

	rel, err := g.RelativePath("sub/deep.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("sub", "deep.txt"), rel)

	rel, err = g.RelativePath(".")
	require.NoError(t, err)
	assert.Equal(t, ".", rel)

	_, err = g.RelativePath("../escape")
	require.Error(t, err)
	assert.Equal(t, types.ErrPathTraversal, types.GetErrorCode(err))
}

func TestGuard_RelativePath_RoundTrip(t *testing.T) {
	g := newTestGuard(t)

	resolved, err := g.ValidatePath("docs/guide/intro.md")
	require.NoError(t, err)

	rel, err := g.RelativePath("docs/guide/intro.md")
	require.NoError(t, err)

	again, err := g.ValidatePath(filepath.Join(g.Root(), rel))
	require.NoError(t, err)
	assert.Equal(t, resolved, again)
}

func TestGuard_ListMatching(t *testing.T) {
	g := newTestGuard(t)
	root := g.Root()

	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "sub", "c.txt"), "c")

	assert.ElementsMatch(t,
		[]string{filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")},
		g.ListMatching("*.txt"))
	assert.ElementsMatch(t,
		[]string{filepath.Join(root, "sub", "c.txt")},
		g.ListMatching("sub/*.txt"))

	assert.Empty(t, g.ListMatching("*.go"))
	assert.Empty(t, g.ListMatching("../*"))
	assert.Empty(t, g.ListMatching("["))
}

func TestGuard_WithPinnedDir(t *testing.T) {
	g := newTestGuard(t)

	prev, err := os.Getwd()
	require.NoError(t, err)

	var inside string
	require.NoError(t, g.WithPinnedDir(func() error {
		wd, err := os.Getwd()
		require.NoError(t, err)
		inside, err = filepath.EvalSymlinks(wd)
		return err
	}))
	assert.Equal(t, g.Root(), inside)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, prev, after)
}

func TestGuard_WithPinnedDir_RestoresOnError(t *testing.T) {
	g := newTestGuard(t)

	prev, err := os.Getwd()
	require.NoError(t, err)

	wantErr := types.NewError(types.ErrExecutionFailure, "boom")
	err = g.WithPinnedDir(func() error { return wantErr })
	require.ErrorIs(t, err, wantErr)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, prev, after)
}

type captureSink struct {
	decisions []string
}

func (c *captureSink) PathDecision(root, path string, allowed bool, detail string) {
	verdict := "allow"
	if !allowed {
		verdict = "deny"
	}
	c.decisions = append(c.decisions, verdict+":"+path)
}

func TestGuard_AuditSink(t *testing.T) {
	sink := &captureSink{}
	g := newTestGuard(t).WithAudit(sink)

	_, _ = g.ValidatePath("ok.txt")
	_, _ = g.ValidatePath("../nope")

	require.Len(t, sink.decisions, 2)
	assert.True(t, strings.HasPrefix(sink.decisions[0], "allow:"))
	assert.True(t, strings.HasPrefix(sink.decisions[1], "deny:"))
}
