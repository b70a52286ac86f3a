package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias so callers don't import logrus for structured fields.
type Fields = logrus.Fields

// Options control logger construction.
type Options struct {
	Env   string
	Level string
	Dir   string
	Name  string
}

// New builds the process logger. Outside APP_ENV=test the output is teed
// into a rotated file under Dir.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&formatter.Formatter{
		NoColors:        opts.Env == "production" || opts.Env == "prod",
		TimestampFormat: "02 Jan 06 - 15:04:05",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	writers := []io.Writer{os.Stderr}
	if opts.Env != "test" && opts.Dir != "" {
		name := opts.Name
		if name == "" {
			name = "app"
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, fmt.Sprintf("%s-%s.log", name, time.Now().Format("2006-01-02"))),
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}

	log.SetOutput(io.MultiWriter(writers...))
	log.SetReportCaller(true)
	return log
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// ErrorWithTraceID logs at error level and returns the trace id attached to
// the entry so it can be handed back to the client.
func ErrorWithTraceID(log logrus.FieldLogger, fields Fields, msg string) string {
	if fields == nil {
		fields = Fields{}
	}
	traceID, _ := fields["request_id"].(string)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	fields["trace_id"] = traceID
	log.WithFields(fields).Error(msg)
	return traceID
}
