package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"

	"github.com/bt1zar/warden/boundary"
	"github.com/bt1zar/warden/types"
)

// newPredeclared builds the execution namespace: vetted interpreter
// modules plus the three capabilities that bridge to the host. Every
// file access goes through the guard; nothing here reads the working
// directory or ambient environment.
func newPredeclared(guard *boundary.Guard) starlark.StringDict {
	return starlark.StringDict{
		"secure_read_file":  starlark.NewBuiltin("secure_read_file", makeReadFile(guard)),
		"secure_write_file": starlark.NewBuiltin("secure_write_file", makeWriteFile(guard)),
		"get_project_root":  starlark.NewBuiltin("get_project_root", makeProjectRoot(guard)),
		"json":              starlarkjson.Module,
		"math":              starlarkmath.Module,
		"time":              starlarktime.Module,
	}
}

func makeReadFile(guard *boundary.Guard) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path); err != nil {
			return nil, err
		}
		validated, err := guard.ValidatePath(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(validated)
		if err != nil {
			return nil, types.NewError(types.ErrIOFailure,
				fmt.Sprintf("cannot read %s", path)).WithCause(err)
		}
		return starlark.String(data), nil
	}
}

func makeWriteFile(guard *boundary.Guard) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path, content string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path, "content", &content); err != nil {
			return nil, err
		}
		validated, err := guard.ValidatePath(path)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(validated), 0o755); err != nil {
			return nil, types.NewError(types.ErrIOFailure,
				fmt.Sprintf("cannot create parent directories for %s", path)).WithCause(err)
		}
		if err := os.WriteFile(validated, []byte(content), 0o644); err != nil {
			return nil, types.NewError(types.ErrIOFailure,
				fmt.Sprintf("cannot write %s", path)).WithCause(err)
		}
		return starlark.None, nil
	}
}

func makeProjectRoot(guard *boundary.Guard) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
			return nil, err
		}
		return starlark.String(guard.Root()), nil
	}
}
