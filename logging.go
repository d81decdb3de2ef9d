// logging.go wires corelet's internal lifecycle logging (the "loop started"
// and "loop stopped" notices of each EventLoop; no other events are logged)
// to github.com/joeycumines/logiface, the structured logging façade also
// depended on by the teacher this package is descended from.
//
// Logging configuration (backend choice, verbosity policy) is an external
// collaborator's job, not the core's — see spec.md's Non-goals. This file
// only defines the integration point (the Event type and a usable
// zero-configuration default) and the package-level accessors a host
// program uses to swap in its own logiface-backed logger.
package corelet

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/joeycumines/logiface"
)

// LogEvent is corelet's github.com/joeycumines/logiface.Event implementation.
// It is deliberately minimal: a level and a set of key/value fields, which
// textWriter renders as a single line. Hosts that want richer output (JSON,
// zerolog, logrus, ...) implement their own Event/Writer pair and swap it in
// with SetLogger — see the logiface sub-adapters in the wider ecosystem for
// examples of that pattern.
type LogEvent struct {
	logiface.UnimplementedEvent
	level   logiface.Level
	message string
	fields  []logField
}

type logField struct {
	key string
	val any
}

// Level implements logiface.Event.
func (e *LogEvent) Level() logiface.Level { return e.level }

// AddField implements logiface.Event.
func (e *LogEvent) AddField(key string, val any) {
	e.fields = append(e.fields, logField{key: key, val: val})
}

// AddMessage implements the optional logiface.Event method.
func (e *LogEvent) AddMessage(msg string) bool {
	e.message = msg
	return true
}

// AddError implements the optional logiface.Event method.
func (e *LogEvent) AddError(err error) bool {
	e.AddField("error", err)
	return true
}

type eventFactory struct{}

func (eventFactory) NewEvent(level logiface.Level) *LogEvent {
	return &LogEvent{level: level}
}

// textWriter renders LogEvent values as a single human-readable line. It is
// the zero-configuration default backing the package-level logger that
// init installs.
type textWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *textWriter) Write(e *LogEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "level=%s msg=%q", levelString(e.level), e.message)
	for _, f := range e.fields {
		fmt.Fprintf(w.out, " %s=%v", f.key, f.val)
	}
	fmt.Fprintln(w.out)
	return nil
}

func levelString(l logiface.Level) string {
	switch l {
	case logiface.LevelEmergency, logiface.LevelAlert, logiface.LevelCritical:
		return "fatal"
	case logiface.LevelError:
		return "error"
	case logiface.LevelWarning:
		return "warn"
	case logiface.LevelNotice, logiface.LevelInformational:
		return "info"
	case logiface.LevelDebug:
		return "debug"
	case logiface.LevelTrace:
		return "trace"
	default:
		return "disabled"
	}
}

// NewLogger constructs a *logiface.Logger[*LogEvent] writing text lines to w
// at or above the given level. Pass logiface.LevelDisabled to silence it
// entirely.
func NewLogger(w io.Writer, level logiface.Level) *logiface.Logger[*LogEvent] {
	return logiface.New[*LogEvent](
		logiface.WithEventFactory[*LogEvent](eventFactory{}),
		logiface.WithWriter[*LogEvent](&textWriter{out: w}),
		logiface.WithLevel[*LogEvent](level),
	)
}

var globalLogger struct {
	sync.RWMutex
	logger *logiface.Logger[*LogEvent]
}

func init() {
	globalLogger.logger = NewLogger(os.Stderr, logiface.LevelNotice)
}

// SetLogger installs the package-level logger used for corelet's own
// lifecycle logging. A nil logger installs a disabled (no-op) logger, not
// the stderr default installed at init.
func SetLogger(logger *logiface.Logger[*LogEvent]) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	if logger == nil {
		logger = NewLogger(io.Discard, logiface.LevelDisabled)
	}
	globalLogger.logger = logger
}

func currentLogger() *logiface.Logger[*LogEvent] {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	return globalLogger.logger
}

// loggerFor returns override if non-nil (a loop constructed with
// WithLogger), otherwise the package-level logger installed via
// SetLogger.
func loggerFor(override *logiface.Logger[*LogEvent]) *logiface.Logger[*LogEvent] {
	if override != nil {
		return override
	}
	return currentLogger()
}

func logNotice(override *logiface.Logger[*LogEvent], loopID Identifier, msg string, kv ...any) {
	b := loggerFor(override).Notice()
	logKV(b, loopID, kv)
	b.Log(msg)
}

func logWarn(override *logiface.Logger[*LogEvent], loopID Identifier, msg string, kv ...any) {
	b := loggerFor(override).Warning()
	logKV(b, loopID, kv)
	b.Log(msg)
}

func logKV(b *logiface.Builder[*LogEvent], loopID Identifier, kv []any) {
	b.Uint64("loop_id", uint64(loopID))
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			b.Str(key, v)
		case int:
			b.Int(key, v)
		case uint64:
			b.Uint64(key, v)
		case bool:
			b.Bool(key, v)
		default:
			b.Any(key, v)
		}
	}
}
