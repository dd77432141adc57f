// Package debug gates ff's verbose diagnostics behind -v / FF_DEBUG: walk
// errors, cache evictions, and plugin load failures are written through it
// instead of directly to stderr, so a normal run stays quiet (spec §4.G).
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// EnableDebug can be overridden at build time:
// go build -ldflags "-X github.com/standardbeagle/ff/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	debugMutex sync.Mutex
	debugOut   io.Writer
)

// SetOutput sets the writer debug output is sent to; stderr by default once
// -v is passed. nil clears it, after which output still goes to stderr
// when the build-time flag or FF_DEBUG enables it.
func SetOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOut = w
}

func output() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOut
}

// Enabled reports whether debug output should be produced: the -v flag
// (via SetOutput), the build-time ldflag, or FF_DEBUG in the environment.
func Enabled() bool {
	if output() != nil {
		return true
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("FF_DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	if w := output(); w != nil {
		return w
	}
	if Enabled() {
		return os.Stderr
	}
	return nil
}

// Log writes a component-tagged debug line, e.g. Log("walk", "skip %s: %v", path, err).
func Log(component, format string, args ...interface{}) {
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

// Walk logs a per-entry walk error (spec §4.G: "permission denied on a
// directory is silently skipped, debug-logged").
func Walk(path string, err error) { Log("walk", "%s: %v", path, err) }

// Cache logs a cache eviction or write failure (spec §4.D).
func Cache(format string, args ...interface{}) { Log("cache", format, args...) }

// Plugin logs a plugin load failure that was recoverable enough to skip
// rather than abort (an unrecoverable one is an errkit PluginError instead).
func Plugin(format string, args ...interface{}) { Log("plugin", format, args...) }
