// internal/recovery/recovery.go
package recovery

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
)

// exit is replaced in tests.
var exit = os.Exit

// HandlePanic should be deferred at the top of main().
// It logs panic details and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		report(r)
		exit(1)
	}
}

// HandlePanicFunc should be deferred at the top of goroutines. It logs panic
// details, calls cleanup (e.g. to restore the terminal) and exits with code 1.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		report(r)
		if cleanup != nil {
			cleanup()
		}
		exit(1)
	}
}

func report(r any) {
	stack := debug.Stack()
	slog.Error("panic recovered", "panic", fmt.Sprint(r))
	_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
}
