// Package cli implements the gamemap command-line interface.
//
// This package provides commands for downloading cluster graphs, building
// game neighborhoods across clusters, laying them out headlessly or in an
// interactive terminal viewer, and serving live viewer sessions over HTTP.
// The CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - fetch: Download one cluster graph
//   - neighborhood, neighbors: Build a neighborhood or list direct neighbors
//   - layout: Settle a layout and export GeoJSON, SVG, DOT or JSON
//   - view: Watch the layout settle in the terminal
//   - serve: Run the HTTP API
//   - cache: Manage the payload cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Example
//
//	import "github.com/toucan4life/gamemap/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger writes timestamped ("15:04:05.00") entries at level or above.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one long operation such as a neighborhood build.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Built neighborhood elapsed=1.234s".
func (p *progress) done(msg string, keyvals ...any) {
	elapsed := time.Since(p.start).Round(time.Millisecond)
	p.logger.Info(msg, append(keyvals, "elapsed", elapsed)...)
}

// progressLogger adapts a logger to the builder's progress callback. Build
// milestones arrive as plain sentences and are logged under the "build"
// prefix at level.
func progressLogger(l *log.Logger, level log.Level) func(string) {
	bl := l.WithPrefix("build")
	return func(msg string) { bl.Log(level, msg) }
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger, or log.Default when the
// command ran without setup.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
