// Package applog writes one JSON object per log line.
package applog

import (
	"encoding/json"
	"log"
	"time"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Event logs msg at level with extra fields. ts, level and msg are always
// set and override fields of the same name. A nil logger drops the event.
func Event(logger *log.Logger, level, msg string, fields map[string]any) {
	if logger == nil {
		return
	}
	payload := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		payload[k] = v
	}
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload["level"] = level
	payload["msg"] = msg

	b, err := json.Marshal(payload)
	if err != nil {
		logger.Printf(`{"level":"error","msg":"log_marshal_failed","error":%q}`, err.Error())
		return
	}
	logger.Print(string(b))
}

func Info(logger *log.Logger, msg string, fields map[string]any) {
	Event(logger, LevelInfo, msg, fields)
}

func Warn(logger *log.Logger, msg string, fields map[string]any) {
	Event(logger, LevelWarn, msg, fields)
}

func Error(logger *log.Logger, msg string, fields map[string]any) {
	Event(logger, LevelError, msg, fields)
}

// OrDefault returns logger, or the standard logger when nil.
func OrDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}
