package pkg

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/ansel1/merry"
)

// FormatMerryStacktrace formats the stack captured by merry, or an empty
// string when e carries none.
func FormatMerryStacktrace(e error, sep string) string {
	return formatStack(merry.Stack(e), sep)
}

func formatStack(stack []uintptr, sep string) string {
	var xs []string
	for _, fp := range stack {
		fnc := runtime.FuncForPC(fp)
		if fnc == nil {
			continue
		}
		name := filepath.Base(fnc.Name())
		if name == "runtime.goexit" {
			continue
		}
		file, line := fnc.FileLine(fp)
		xs = append(xs, fmt.Sprintf("%s:%d %s", formatStackTraceFileName(file), line, name))
	}
	return strings.Join(xs, sep)
}

func formatStackTraceFileName(file string) string {
	file = strings.ReplaceAll(file, "\\", "/")
	file = excludeGoModRegexp.ReplaceAllString(file, "")
	file = excludeGoSrcRegexp.ReplaceAllString(file, "")
	file = excludeModuleRegexp.ReplaceAllString(file, "")
	file = excludeVersionRegexp.ReplaceAllString(file, "")
	return file
}

var (
	excludeGoModRegexp   = regexp.MustCompile(`^.*/pkg/mod/`)
	excludeGoSrcRegexp   = regexp.MustCompile(`^.*/src/`)
	excludeModuleRegexp  = regexp.MustCompile(`^.*github\.com/fpawel/gasflow/`)
	excludeVersionRegexp = regexp.MustCompile(`@v[^/]+`)
)
