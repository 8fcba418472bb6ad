package vectorizer

import (
	"sync"

	"go.uber.org/zap"
)

// UnknownCategory is the warning raised for a categorical value that the
// summary has never seen. Encoding continues with the column's block left
// all zero (or its reserved slot set, under UnknownBucket).
type UnknownCategory struct {
	Column int
	Value  string
	// RecordID is the record's identifier when an id column is configured.
	RecordID string
}

// Reporter receives unknown-category warnings. Implementations must be safe
// for concurrent use: Encode runs on many goroutines at once.
type Reporter interface {
	ReportUnknown(UnknownCategory)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(UnknownCategory)

// ReportUnknown calls f.
func (f ReporterFunc) ReportUnknown(u UnknownCategory) { f(u) }

// NopReporter discards warnings.
type NopReporter struct{}

// ReportUnknown does nothing.
func (NopReporter) ReportUnknown(UnknownCategory) {}

// LogReporter logs every warning at warn level.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a LogReporter writing to logger.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// ReportUnknown logs u.
func (r *LogReporter) ReportUnknown(u UnknownCategory) {
	fields := []zap.Field{
		zap.Int("column", u.Column),
		zap.String("value", u.Value),
	}
	if u.RecordID != "" {
		fields = append(fields, zap.String("record_id", u.RecordID))
	}
	r.logger.Warn("unknown categorical value", fields...)
}

// Collector keeps every warning in arrival order.
type Collector struct {
	mu       sync.Mutex
	unknowns []UnknownCategory
}

// ReportUnknown appends u.
func (c *Collector) ReportUnknown(u UnknownCategory) {
	c.mu.Lock()
	c.unknowns = append(c.unknowns, u)
	c.mu.Unlock()
}

// Unknowns returns a copy of the collected warnings.
func (c *Collector) Unknowns() []UnknownCategory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]UnknownCategory(nil), c.unknowns...)
}

// Len returns the number of collected warnings.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.unknowns)
}

// MultiReporter fans a warning out to several reporters.
type MultiReporter []Reporter

// ReportUnknown forwards u to every reporter.
func (m MultiReporter) ReportUnknown(u UnknownCategory) {
	for _, r := range m {
		r.ReportUnknown(u)
	}
}
