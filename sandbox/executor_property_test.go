package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"github.com/bt1zar/warden/boundary"
	"github.com/bt1zar/warden/types"
)

func newPropertyExecutor(t *testing.T) (*Executor, *boundary.Guard) {
	t.Helper()
	guard, err := boundary.NewGuard(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewGuard failed: %v", err)
	}
	return NewExecutor(DefaultConfig(), zap.NewNop()), guard
}

func TestProperty_Executor_DenyCheckSoundness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	exec, guard := newPropertyExecutor(t)
	sideEffect := filepath.Join(guard.Root(), "side_effect.txt")

	properties.Property("any import form of a blocked module is rejected before evaluation", prop.ForAll(
		func(moduleIdx, formIdx int) bool {
			module := BlockedImports[moduleIdx]
			forms := []string{
				fmt.Sprintf("import %s", module),
				fmt.Sprintf("from %s import thing", module),
				fmt.Sprintf("x = __import__('%s')", module),
				fmt.Sprintf("x = __import__(%q)", module),
			}
			code := forms[formIdx] + "\n" + `secure_write_file("side_effect.txt", "x")`

			res := exec.Execute(context.Background(), Request{Guard: guard, Code: code})
			if res.Success {
				t.Logf("execution succeeded for blocked module %s", module)
				return false
			}
			if res.ErrorCode != types.ErrBlockedImport {
				t.Logf("expected blocked import code, got %s", res.ErrorCode)
				return false
			}
			if _, err := os.Stat(sideEffect); !os.IsNotExist(err) {
				t.Logf("side effect file exists after rejected execution")
				return false
			}
			return true
		},
		gen.IntRange(0, len(BlockedImports)-1),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

func TestProperty_Executor_ArithmeticResults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	exec, guard := newPropertyExecutor(t)

	properties.Property("integer sums evaluate to the expected result value", prop.ForAll(
		func(a, b int) bool {
			code := fmt.Sprintf("result = %d + %d", a, b)
			res := exec.Execute(context.Background(), Request{Guard: guard, Code: code})
			if !res.Success {
				t.Logf("execution failed: %s", res.Error)
				return false
			}
			got, ok := res.Value.(int64)
			if !ok {
				t.Logf("expected int64 value, got %T", res.Value)
				return false
			}
			if got != int64(a)+int64(b) {
				t.Logf("expected %d, got %d", int64(a)+int64(b), got)
				return false
			}
			return true
		},
		gen.IntRange(-1_000_000, 1_000_000),
		gen.IntRange(-1_000_000, 1_000_000),
	))

	properties.TestingRun(t)
}

func TestProperty_Executor_PrintEcho(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	exec, guard := newPropertyExecutor(t)

	properties.Property("printed text is captured verbatim with a trailing newline", prop.ForAll(
		func(s string) bool {
			code := fmt.Sprintf("print(%q)", s)
			res := exec.Execute(context.Background(), Request{Guard: guard, Code: code})
			if !res.Success {
				t.Logf("execution failed: %s", res.Error)
				return false
			}
			if res.Output != s+"\n" {
				t.Logf("expected %q, got %q", s+"\n", res.Output)
				return false
			}
			return true
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestProperty_Executor_FileRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	exec, guard := newPropertyExecutor(t)

	properties.Property("content written through the capability reads back unchanged", prop.ForAll(
		func(name, content string) bool {
			path := fmt.Sprintf("data/%s.txt", name)
			code := fmt.Sprintf("secure_write_file(%q, %q)\nresult = secure_read_file(%q)", path, content, path)

			res := exec.Execute(context.Background(), Request{Guard: guard, Code: code})
			if !res.Success {
				t.Logf("execution failed: %s", res.Error)
				return false
			}
			got, ok := res.Value.(string)
			if !ok {
				t.Logf("expected string value, got %T", res.Value)
				return false
			}
			if got != content {
				t.Logf("expected %q, got %q", content, got)
				return false
			}
			return true
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestProperty_Executor_StatsBalance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	exec, guard := newPropertyExecutor(t)

	properties.Property("counters always balance against the total", prop.ForAll(
		func(block bool, n int) bool {
			code := fmt.Sprintf("result = %d", n)
			if block {
				code = "import subprocess"
			}
			exec.Execute(context.Background(), Request{Guard: guard, Code: code})

			stats := exec.GetStats()
			sum := stats.Succeeded + stats.Failed + stats.Blocked + stats.TimedOut
			if stats.Total != sum {
				t.Logf("total %d does not balance against %d", stats.Total, sum)
				return false
			}
			return true
		},
		gen.Bool(),
		gen.Int(),
	))

	properties.TestingRun(t)
}
