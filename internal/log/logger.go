package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger that remembers its component.
type Logger struct {
	*slog.Logger
	component string
	// base is the handler with every attribute except the component.
	base slog.Handler
}

// Output formats accepted by LOG_FORMAT.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds logger configuration. Handler, when set, wins over Format
// and Output.
type Config struct {
	Level     slog.Level
	Component string
	Format    string
	Output    io.Writer
	Handler   slog.Handler
}

// DefaultConfig logs text at Info to stdout.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Format:    FormatText,
		Output:    os.Stdout,
	}
}

// ParseLevel maps LOG_LEVEL values to slog levels. Unknown values are Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger whose records all carry the component field.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: config.Level}
		if strings.EqualFold(config.Format, FormatJSON) {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
	}

	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	return &Logger{
		Logger:    slog.New(handler).With(FieldComponent, component),
		component: component,
		base:      handler,
	}
}

// With returns a new logger with the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
		base:      slog.New(l.baseHandler()).With(args...).Handler(),
	}
}

// WithComponent returns a logger tagged with another component. The
// previous component attribute is replaced, not repeated.
func (l *Logger) WithComponent(component string) *Logger {
	base := l.baseHandler()
	return &Logger{
		Logger:    slog.New(base).With(FieldComponent, component),
		component: component,
		base:      base,
	}
}

func (l *Logger) baseHandler() slog.Handler {
	if l.base != nil {
		return l.base
	}
	return l.Logger.Handler()
}

// ForBucket adds the bucket identity to every record.
func (l *Logger) ForBucket(creatorID, period string) *Logger {
	return l.With(FieldCreatorID, creatorID, FieldPeriod, period)
}

// SetDefault sets the default logger for the application
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}
