package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Kind is the bracketed prefix of a log line. The terminal colorizer keys
// off the prefix only, so the set of values must stay stable.
type Kind string

const (
	KindInfo  Kind = "INFO"
	KindOK    Kind = "OK"
	KindWarn  Kind = "WARN"
	KindError Kind = "ERROR"
	KindDebug Kind = "DEBUG"
	KindStop  Kind = "STOP"
	KindDone  Kind = "DONE"
	KindLogin Kind = "LOGIN"
	KindAsk   Kind = "ASK"
	KindAuto  Kind = "AUTO"
	KindSkip  Kind = "SKIP"
	KindLoad  Kind = "Загрузка"
	KindCache Kind = "CACHE"
)

type Logger struct {
	Debug bool

	mu sync.Mutex
	w  io.Writer
}

func NewLogger(debug bool) *Logger {
	return &Logger{Debug: debug, w: os.Stdout}
}

func NewLoggerTo(debug bool, w io.Writer) *Logger {
	return &Logger{Debug: debug, w: w}
}

// Line emits one prefixed line.
func (l *Logger) Line(kind Kind, format string, args ...any) {
	if kind == KindDebug && !l.Debug {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[%s] "+format+"\n", append([]any{string(kind)}, args...)...)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.Line(KindDebug, format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.Line(KindInfo, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Line(KindError, format, args...)
}
