package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// GELF levels follow syslog severity.
const (
	gelfLevelError = int32(3)
	gelfLevelWarn  = int32(4)
	gelfLevelInfo  = int32(6)
	gelfLevelDebug = int32(7)
)

// GelfHandler is a slog.Handler that ships records to a Graylog input
// over UDP in GELF format.
type GelfHandler struct {
	writer   *gelf.Writer
	host     string
	facility string
	level    slog.Level
	attrs    []slog.Attr
}

var _ slog.Handler = (*GelfHandler)(nil)

// NewGelfHandler dials the given Graylog UDP address (host:port).
func NewGelfHandler(address, facility string, level slog.Level) (*GelfHandler, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, err
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &GelfHandler{
		writer:   w,
		host:     host,
		facility: facility,
		level:    level,
	}, nil
}

// Enabled reports whether the record level clears the handler threshold.
func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle converts the record to a GELF message and writes it out.
// GELF requires additional field names to carry an underscore prefix.
func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		extra["_"+a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		extra["_"+a.Key] = a.Value.Any()
		return true
	})

	return h.writer.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    gelfLevel(r.Level),
		Facility: h.facility,
		Extra:    extra,
	})
}

// WithAttrs returns a handler that stamps attrs on every message.
func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &GelfHandler{
		writer:   h.writer,
		host:     h.host,
		facility: h.facility,
		level:    h.level,
		attrs:    merged,
	}
}

// WithGroup returns the handler unchanged. Group names are not mapped to
// GELF fields.
func (h *GelfHandler) WithGroup(string) slog.Handler {
	return h
}

func gelfLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return gelfLevelError
	case l >= slog.LevelWarn:
		return gelfLevelWarn
	case l >= slog.LevelInfo:
		return gelfLevelInfo
	default:
		return gelfLevelDebug
	}
}
