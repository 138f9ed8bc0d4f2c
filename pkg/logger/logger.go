package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "UNKNOWN"
	}
	return levelNames[l]
}

const colorReset = "\033[0m"

var levelColors = map[LogLevel]string{
	DEBUG: "\033[90m",
	INFO:  "\033[34m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
	FATAL: "\033[31m",
}

const defaultTimeFormat = "2006-01-02 15:04:05"

// Logger writes leveled lines to a single writer. Loggers derived with
// WithPrefix share the parent's writer lock.
type Logger struct {
	mu         *sync.Mutex
	out        io.Writer
	level      LogLevel
	prefix     string
	colorize   bool
	showCaller bool
	showTime   bool
	timeFormat string
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Colorize:   true,
		ShowTime:   true,
		TimeFormat: defaultTimeFormat,
		Output:     os.Stdout,
	}
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = defaultTimeFormat
	}
	return &Logger{
		mu:         &sync.Mutex{},
		out:        cfg.Output,
		level:      cfg.Level,
		prefix:     cfg.Prefix,
		colorize:   cfg.Colorize,
		showCaller: cfg.ShowCaller,
		showTime:   cfg.ShowTime,
		timeFormat: cfg.TimeFormat,
	}
}

// ParseLevel maps a level name such as "debug" or "WARN" to a LogLevel.
func ParseLevel(name string) (LogLevel, bool) {
	switch n := strings.ToUpper(strings.TrimSpace(name)); n {
	case "WARNING":
		return WARN, true
	default:
		for i, s := range levelNames {
			if s == n {
				return LogLevel(i), true
			}
		}
	}
	return INFO, false
}

// GetLogger returns the process-wide logger. LOG_LEVEL sets its level and a
// non-empty NO_COLOR disables ANSI colors.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if level, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
			cfg.Level = level
		}
		if os.Getenv("NO_COLOR") != "" {
			cfg.Colorize = false
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// WithPrefix returns a logger sharing l's output and level that tags every
// line with prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	child := *l
	if l.prefix != "" {
		child.prefix = l.prefix + " " + prefix
	} else {
		child.prefix = prefix
	}
	return &child
}

// write formats one line. It must be called directly by an exported method so
// the caller lookup lands on user code.
func (l *Logger) write(level LogLevel, msg string) {
	if level < l.level {
		return
	}

	var b strings.Builder
	if l.showTime {
		b.WriteString(time.Now().Format(l.timeFormat))
		b.WriteByte(' ')
	}
	tag := "[" + level.String() + "]"
	if l.colorize {
		tag = levelColors[level] + tag + colorReset
	}
	b.WriteString(tag)
	if l.showCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			fmt.Fprintf(&b, " %s:%d", filepath.Base(file), line)
		}
	}
	if l.prefix != "" {
		b.WriteByte(' ')
		b.WriteString(l.prefix)
	}
	b.WriteByte(' ')
	b.WriteString(msg)

	l.mu.Lock()
	fmt.Fprintln(l.out, b.String())
	l.mu.Unlock()

	if level == FATAL {
		os.Exit(1)
	}
}

func (l *Logger) Info(msg string)  { l.write(INFO, msg) }
func (l *Logger) Warn(msg string)  { l.write(WARN, msg) }
func (l *Logger) Error(msg string) { l.write(ERROR, msg) }

func (l *Logger) Debugf(format string, args ...any) { l.write(DEBUG, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.write(INFO, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.write(WARN, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.write(ERROR, fmt.Sprintf(format, args...)) }

// Fatalf logs at FATAL level and exits with status 1.
func (l *Logger) Fatalf(format string, args ...any) { l.write(FATAL, fmt.Sprintf(format, args...)) }
