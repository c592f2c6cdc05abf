package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Interface describes the minimal logging interface the worker relies on.
type Interface interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

var (
	globalLogger Interface
	once         sync.Once
	level        = zerolog.InfoLevel
)

// SetLevel sets the minimum level of the global logger. It only takes effect
// when called before the first Logger call.
func SetLevel(name string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	level = lvl
	return nil
}

// Logger returns a lazily initialized zerolog-backed logger implementing Interface.
func Logger() Interface {
	once.Do(func() {
		base := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
		globalLogger = &zerologAdapter{log: base}
	})
	return globalLogger
}

// With returns a logger that adds a string field to every entry.
func With(key, value string) Interface {
	if a, ok := Logger().(*zerologAdapter); ok {
		return &zerologAdapter{log: a.log.With().Str(key, value).Logger()}
	}
	return Logger()
}

type zerologAdapter struct {
	log zerolog.Logger
}

func (l *zerologAdapter) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *zerologAdapter) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *zerologAdapter) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *zerologAdapter) Warnf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}
