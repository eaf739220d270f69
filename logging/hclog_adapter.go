package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// HCLogAdapter routes hashicorp/raft's and hashicorp/serf's internal
// logging through this package's level-filtered sink instead of their
// default stderr logger, so a controller process has one consistent log
// stream regardless of which library emitted the line.
type HCLogAdapter struct {
	name string
	args []interface{}
}

// NewHCLogAdapter returns an hclog.Logger backed by this package.
func NewHCLogAdapter(name string) *HCLogAdapter {
	return &HCLogAdapter{name: name}
}

func (h *HCLogAdapter) format(msg string) string {
	if h.name == "" {
		return msg
	}
	return fmt.Sprintf("[%s] %s", h.name, msg)
}

func (h *HCLogAdapter) fieldSuffix(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args)/2+1)
	for i := 0; i+1 < len(args); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", args[i], args[i+1]))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func (h *HCLogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		h.Debug(msg, args...)
	case hclog.Warn:
		h.Warn(msg, args...)
	case hclog.Error:
		h.Error(msg, args...)
	default:
		h.Info(msg, args...)
	}
}

func (h *HCLogAdapter) Trace(msg string, args ...interface{}) { h.Debug(msg, args...) }

func (h *HCLogAdapter) Debug(msg string, args ...interface{}) {
	Debug("%s%s", h.format(msg), h.fieldSuffix(append(h.args, args...)))
}

func (h *HCLogAdapter) Info(msg string, args ...interface{}) {
	Info("%s%s", h.format(msg), h.fieldSuffix(append(h.args, args...)))
}

func (h *HCLogAdapter) Warn(msg string, args ...interface{}) {
	Warn("%s%s", h.format(msg), h.fieldSuffix(append(h.args, args...)))
}

func (h *HCLogAdapter) Error(msg string, args ...interface{}) {
	Error("%s%s", h.format(msg), h.fieldSuffix(append(h.args, args...)))
}

func (h *HCLogAdapter) IsTrace() bool { return LogLevel == DEBUG }
func (h *HCLogAdapter) IsDebug() bool { return LogLevel == DEBUG }
func (h *HCLogAdapter) IsInfo() bool  { return true }
func (h *HCLogAdapter) IsWarn() bool  { return true }
func (h *HCLogAdapter) IsError() bool { return true }

func (h *HCLogAdapter) ImpliedArgs() []interface{} { return h.args }

func (h *HCLogAdapter) With(args ...interface{}) hclog.Logger {
	return &HCLogAdapter{name: h.name, args: append(append([]interface{}{}, h.args...), args...)}
}

func (h *HCLogAdapter) Name() string { return h.name }

func (h *HCLogAdapter) Named(name string) hclog.Logger {
	if h.name == "" {
		return &HCLogAdapter{name: name, args: h.args}
	}
	return &HCLogAdapter{name: h.name + "." + name, args: h.args}
}

func (h *HCLogAdapter) ResetNamed(name string) hclog.Logger {
	return &HCLogAdapter{name: name, args: h.args}
}

func (h *HCLogAdapter) SetLevel(hclog.Level) {}

func (h *HCLogAdapter) GetLevel() hclog.Level {
	switch LogLevel {
	case DEBUG:
		return hclog.Debug
	case WARN:
		return hclog.Warn
	case ERROR:
		return hclog.Error
	default:
		return hclog.Info
	}
}

func (h *HCLogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *stdlog.Logger {
	return stdlog.New(h.StandardWriter(opts), "", 0)
}

func (h *HCLogAdapter) StandardWriter(_ *hclog.StandardLoggerOptions) io.Writer {
	return &hclogWriter{h}
}

type hclogWriter struct {
	h *HCLogAdapter
}

func (w *hclogWriter) Write(p []byte) (int, error) {
	w.h.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
