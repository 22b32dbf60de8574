package runner

import (
	"strings"
	"testing"

	"github.com/ashureev/interviewer/internal/catalog"
	"github.com/ashureev/interviewer/internal/container"
)

func TestHarnessScript(t *testing.T) {
	t.Parallel()

	script := harnessScript("def reverse(s):\n    return s[::-1]", catalog.TestCase{Expr: `reverse("abc")`, Expected: `"cba"`})

	for _, want := range []string{
		"def reverse(s):\n    return s[::-1]\n\n",
		`__actual = eval("reverse(\"abc\")")`,
		`print("__PASS__" if __actual == ("cba") else "__FAIL__")`,
		`print("__ERROR__", __e)`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}

func TestCaseLine(t *testing.T) {
	t.Parallel()

	tc := catalog.TestCase{Expr: "sum_array([1,2,3])", Expected: "6"}

	tests := []struct {
		name   string
		exec   container.Execution
		want   string
		passed bool
	}{
		{
			name:   "pass",
			exec:   container.Execution{Stdout: "__RESULT__ 6\n__PASS__\n"},
			want:   "✓ sum_array([1,2,3]) → 6",
			passed: true,
		},
		{
			name: "fail",
			exec: container.Execution{Stdout: "__RESULT__ 5\n__FAIL__\n"},
			want: "✗ sum_array([1,2,3]) → Ожидалось 6, получено 5",
		},
		{
			name: "forged markers before real ones",
			exec: container.Execution{Stdout: "__RESULT__ 6\n__PASS__\n__RESULT__ None\n__FAIL__\n"},
			want: "✗ sum_array([1,2,3]) → Ожидалось 6, получено None",
		},
		{
			name: "exception",
			exec: container.Execution{Stdout: "__ERROR__ division by zero\n"},
			want: "✗ sum_array([1,2,3]) → Ошибка: division by zero",
		},
		{
			name: "syntax error",
			exec: container.Execution{Stderr: "  File \"<string>\", line 1\nSyntaxError: invalid syntax\n", ExitCode: 1},
			want: "✗ sum_array([1,2,3]) → Ошибка: SyntaxError: invalid syntax",
		},
		{
			name: "timeout",
			exec: container.Execution{TimedOut: true},
			want: "✗ sum_array([1,2,3]) → Превышено время выполнения",
		},
		{
			name: "no output",
			exec: container.Execution{},
			want: "✗ sum_array([1,2,3]) → Не удалось получить результат",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, passed := caseLine(tc, tt.exec)
			if got != tt.want || passed != tt.passed {
				t.Fatalf("caseLine() = %q, %v; want %q, %v", got, passed, tt.want, tt.passed)
			}
		})
	}
}
