package transfer

import (
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Reporter receives progress updates during a transfer. It is purely
// observational; implementations must not touch the file being written.
type Reporter interface {
	// Progress is called with the bytes transferred so far, the total
	// size if known (0 otherwise), and the instantaneous rate in
	// bytes per second.
	Progress(description string, transferred, total int64, rate float64)
}

// NopReporter discards all progress updates.
type NopReporter struct{}

func (NopReporter) Progress(string, int64, int64, float64) {}

// LogReporter writes progress updates to a zap logger at debug level, so
// normal runs stay quiet while --log-level debug shows transfer activity.
type LogReporter struct {
	Log *zap.Logger
}

func (r LogReporter) Progress(description string, transferred, total int64, rate float64) {
	fields := []zap.Field{
		zap.String("file", description),
		zap.String("transferred", humanize.IBytes(uint64(transferred))),
		zap.String("rate", humanize.IBytes(uint64(rate))+"/s"),
	}
	if total > 0 {
		fields = append(fields,
			zap.String("total", humanize.IBytes(uint64(total))),
			zap.Int64("percent", transferred*100/total),
		)
	}
	r.Log.Debug("transfer progress", fields...)
}
