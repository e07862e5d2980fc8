package session

import (
	"github.com/sirupsen/logrus"

	"github.com/nhath/psqlsh/internal/logger"
)

// LogReporter reports errors to the log
type LogReporter struct {
	log *logrus.Entry
}

// NewLogReporter logs through entry, or the "monitoring" logger when nil
func NewLogReporter(entry *logrus.Entry) *LogReporter {
	if entry == nil {
		entry = logger.Named("monitoring")
	}
	return &LogReporter{log: entry}
}

// Report logs err with fields at error level
func (r *LogReporter) Report(err error, fields map[string]any) {
	r.log.WithFields(logrus.Fields(fields)).WithError(err).Error("Unhandled error")
}
