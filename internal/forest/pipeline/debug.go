package pipeline

import (
	"io"
	"log"

	"github.com/banshee-data/treeseg/internal/forest/export"
	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/l2ground"
	"github.com/banshee-data/treeseg/internal/forest/l3raster"
	"github.com/banshee-data/treeseg/internal/forest/l4treetops"
	"github.com/banshee-data/treeseg/internal/forest/l5crowns"
	"github.com/banshee-data/treeseg/internal/forest/report"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	opsLogger  *log.Logger
	diagLogger *log.Logger
)

// SetLogWriters configures the logging streams of the pipeline and of every
// layer it drives. Pass nil for any writer to disable that stream. The
// pipeline itself has no trace output; Trace only reaches the layers.
func SetLogWriters(w LogWriters) {
	opsLogger = newLogger("[pipeline] ", w.Ops)
	diagLogger = newLogger("[pipeline] ", w.Diag)

	l1points.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l2ground.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l3raster.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l4treetops.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l5crowns.SetLogWriters(w.Ops, w.Diag, w.Trace)
	report.SetLogWriters(w.Ops, w.Diag, w.Trace)
	export.SetLogWriters(w.Ops, w.Diag, w.Trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// opsf logs to the ops stream (lifecycle events, actionable problems).
func opsf(format string, args ...interface{}) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

// diagf logs to the diag stream (per-stage counts and timings).
func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}
