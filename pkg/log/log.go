// Package log provides a logging abstraction, following the same
// indirection pdfcpu uses (named loggers that can be individually
// redirected or disabled) but backed by a structured zap logger by
// default instead of the standard library's log.Logger.
package log

import "go.uber.org/zap"

// Logger defines the minimal interface a named logger needs.
type Logger interface {
	Printf(format string, args ...interface{})
	Println(args ...interface{})
}

type logger struct {
	log Logger
}

// micropdf's named loggers, mirroring pdfcpu's Debug/Info/Stats/Trace split.
var (
	Debug = &logger{}
	Info  = &logger{}
	Stats = &logger{}
	Trace = &logger{}
)

// SetDebugLogger sets the debug logger.
func SetDebugLogger(l Logger) { Debug.log = l }

// SetInfoLogger sets the info logger.
func SetInfoLogger(l Logger) { Info.log = l }

// SetStatsLogger sets the stats logger.
func SetStatsLogger(l Logger) { Stats.log = l }

// SetTraceLogger sets the trace logger.
func SetTraceLogger(l Logger) { Trace.log = l }

// zapAdapter makes a zap.SugaredLogger satisfy Logger.
type zapAdapter struct {
	s    *zap.SugaredLogger
	name string
}

func (z zapAdapter) Printf(format string, args ...interface{}) {
	z.s.Infof(z.name+": "+format, args...)
}

func (z zapAdapter) Println(args ...interface{}) {
	z.s.Info(append([]interface{}{z.name + ":"}, args...)...)
}

func newZapSugared() *zap.SugaredLogger {
	zl, err := zap.NewProduction()
	if err != nil {
		zl = zap.NewNop()
	}
	return zl.Sugar()
}

// SetDefaultDebugLogger installs a zap-backed debug logger.
func SetDefaultDebugLogger() { SetDebugLogger(zapAdapter{newZapSugared(), "DEBUG"}) }

// SetDefaultInfoLogger installs a zap-backed info logger.
func SetDefaultInfoLogger() { SetInfoLogger(zapAdapter{newZapSugared(), "INFO"}) }

// SetDefaultStatsLogger installs a zap-backed stats logger.
func SetDefaultStatsLogger() { SetStatsLogger(zapAdapter{newZapSugared(), "STATS"}) }

// SetDefaultTraceLogger installs a no-op trace logger (traces are
// high-volume and off by default, as in the teacher).
func SetDefaultTraceLogger() { SetTraceLogger(nil) }

// SetDefaultLoggers installs the zap-backed defaults for all loggers.
func SetDefaultLoggers() {
	SetDefaultDebugLogger()
	SetDefaultInfoLogger()
	SetDefaultStatsLogger()
	SetDefaultTraceLogger()
}

// DisableLoggers turns off all logging.
func DisableLoggers() {
	SetDebugLogger(nil)
	SetInfoLogger(nil)
	SetStatsLogger(nil)
	SetTraceLogger(nil)
}

// Printf logs a formatted message, or does nothing if this logger is unset.
func (l *logger) Printf(format string, args ...interface{}) {
	if l.log == nil {
		return
	}
	l.log.Printf(format, args...)
}

// Println logs a line, or does nothing if this logger is unset.
func (l *logger) Println(args ...interface{}) {
	if l.log == nil {
		return
	}
	l.log.Println(args...)
}
