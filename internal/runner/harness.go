package runner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/interviewer/internal/catalog"
	"github.com/ashureev/interviewer/internal/container"
)

// Output markers printed by the harness.
const (
	markerResult = "__RESULT__"
	markerError  = "__ERROR__"
	markerPass   = "__PASS__"
	markerFail   = "__FAIL__"
)

// harnessScript appends an evaluation of tc to the candidate's code.
func harnessScript(code string, tc catalog.TestCase) string {
	var b strings.Builder
	b.WriteString(code)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "try:\n    __actual = eval(%s)\n", strconv.Quote(tc.Expr))
	fmt.Fprintf(&b, "except Exception as __e:\n    print(%q, __e)\n", markerError)
	b.WriteString("else:\n")
	fmt.Fprintf(&b, "    print(%q, repr(__actual))\n", markerResult)
	fmt.Fprintf(&b, "    print(%q if __actual == (%s) else %q)\n", markerPass, tc.Expected, markerFail)
	return b.String()
}

// caseLine formats the outcome of one test case.
func caseLine(tc catalog.TestCase, exec container.Execution) (string, bool) {
	if exec.TimedOut {
		return fmt.Sprintf("✗ %s → Превышено время выполнения", tc.Expr), false
	}

	lines := strings.Split(strings.TrimRight(exec.Stdout, "\n"), "\n")
	var actual, verdict, errMsg string
	var haveActual bool
	// Scan from the end so output printed by the candidate cannot forge markers.
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		switch {
		case verdict == "" && (line == markerPass || line == markerFail):
			verdict = line
		case !haveActual && strings.HasPrefix(line, markerResult):
			actual = strings.TrimSpace(strings.TrimPrefix(line, markerResult))
			haveActual = true
		case errMsg == "" && strings.HasPrefix(line, markerError):
			errMsg = strings.TrimSpace(strings.TrimPrefix(line, markerError))
		}
		if verdict != "" && haveActual {
			break
		}
	}

	switch {
	case verdict == markerPass && haveActual:
		return fmt.Sprintf("✓ %s → %s", tc.Expr, actual), true
	case verdict == markerFail && haveActual:
		return fmt.Sprintf("✗ %s → Ожидалось %s, получено %s", tc.Expr, tc.Expected, actual), false
	case errMsg != "":
		return fmt.Sprintf("✗ %s → Ошибка: %s", tc.Expr, errMsg), false
	case exec.Stderr != "":
		return fmt.Sprintf("✗ %s → Ошибка: %s", tc.Expr, lastLine(exec.Stderr)), false
	default:
		return fmt.Sprintf("✗ %s → Не удалось получить результат", tc.Expr), false
	}
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return strings.TrimSpace(s)
}
