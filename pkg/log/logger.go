// Package log provides the named leveled loggers of every package. All
// loggers share one go-logging backend; its sink, default level and per
// module levels are set once by the command line.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

// ErrUnknownLevel is returned by ParseLevel
var ErrUnknownLevel = errors.New("log: unknown level")

// Level is a logger verbosity level
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levelNames = [...]string{"DEBUG", "INFO", "NOTICE", "WARNING", "ERROR"}

func (l Level) String() string {
	if l < Debug || l > Error {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name, ignoring case
func ParseLevel(name string) (Level, error) {
	for i, n := range levelNames {
		if strings.EqualFold(name, n) {
			return Level(i), nil
		}
	}
	return Notice, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
}

func (l Level) backend() logging.Level {
	switch l {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	}
	return logging.NOTICE
}

// Terminals get colored level tags, other sinks plain text
var (
	colorFormat = logging.MustStringFormatter(
		`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
	)
	plainFormat = logging.MustStringFormatter(
		`[%{time:15:04:05.000}] [%{module}] [%{level}] %{message}`,
	)
)

// Logger is the leveled logger used by every package
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// backend state, guarded by mu
var (
	mu      sync.Mutex
	sink    io.Writer = os.Stdout
	level             = Notice
	modules           = map[string]Level{}
	leveled logging.LeveledBackend
)

// New creates a named logger. The name shows up as the module column.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink redirects every logger to w. Levels are kept.
func SetSink(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sink = w
	rebuild()
}

// SetLevel sets the verbosity of every module without a level of its own
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	leveled.SetLevel(l.backend(), "")
}

// SetModuleLevel sets the verbosity of one module only
func SetModuleLevel(module string, l Level) {
	mu.Lock()
	defer mu.Unlock()
	modules[module] = l
	leveled.SetLevel(l.backend(), module)
}

// GetLevel returns the verbosity of module
func GetLevel(module string) Level {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := modules[module]; ok {
		return l
	}
	return level
}

// Enabled reports whether messages at l are emitted for module
func Enabled(l Level, module string) bool {
	mu.Lock()
	defer mu.Unlock()
	return leveled.IsEnabledFor(l.backend(), module)
}

// rebuild installs a backend writing to sink. mu must be held.
func rebuild() {
	format := plainFormat
	if sink == os.Stdout || sink == os.Stderr {
		format = colorFormat
	}
	leveled = logging.AddModuleLevel(logging.NewBackendFormatter(logging.NewLogBackend(sink, "", 0), format))
	leveled.SetLevel(level.backend(), "")
	for m, l := range modules {
		leveled.SetLevel(l.backend(), m)
	}
	logging.SetBackend(leveled)
}

func init() {
	mu.Lock()
	rebuild()
	mu.Unlock()
}
