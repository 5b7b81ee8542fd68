// Package cli implements the causalhub command-line interface.
//
// This package provides commands for learning causal graphs from CSV data,
// testing conditional independence, answering d-separation queries,
// rendering graphs, serving the HTTP API and managing the result cache.
// The CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - fit: Learn a DAG (hill climbing) or skeleton (PC-stable) from data
//   - test: Run one conditional independence test
//   - dsep: Check d-separation and print Markov blankets
//   - render: Generate SVG, PNG or DOT from a graph file
//   - serve: Run the HTTP API with Prometheus metrics
//   - cache: Manage the result cache
//
// # Configuration
//
// Defaults for fit, the cache backend and the server are read from
// $XDG_CONFIG_HOME/causalhub/config.toml, or the file given by --config.
// Flags override the file.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. Timestamps read "15:04:05.00".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stage times one step of a command and logs it on completion.
type stage struct {
	logger *log.Logger
	start  time.Time
}

func startStage(l *log.Logger) *stage {
	return &stage{logger: l, start: time.Now()}
}

// done logs msg with keyvals and the elapsed time, e.g.
// "Loaded dataset rows=500 variables=5 elapsed=3ms".
func (s *stage) done(msg string, keyvals ...any) {
	elapsed := time.Since(s.start).Round(time.Millisecond)
	s.logger.Info(msg, append(keyvals, "elapsed", elapsed)...)
}

type ctxKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext returns the command logger, or log.Default() outside a
// command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
