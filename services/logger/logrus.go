package logsvc

import (
	"io/ioutil"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tsfaye/sims/core"
)

// LogrusLogger is the default logger for local runs and tests.
type LogrusLogger struct {
	log *logrus.Logger
}

var _ core.Logger = (*LogrusLogger)(nil)

func NewLogrusLogger(conf *core.Config) *LogrusLogger {
	log := logrus.New()
	if conf.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	if conf.Env != "DEV" && conf.Env != "TEST" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return &LogrusLogger{log: log}
}

func (l LogrusLogger) Enable(enabled bool) {
	if enabled {
		l.log.SetOutput(os.Stderr)
	} else {
		l.log.SetOutput(ioutil.Discard)
	}
}

// expected fmt: msg | error, map[string]interface{}
func (l LogrusLogger) fields(args []interface{}) logrus.Fields {
	if len(args) == 0 {
		return nil
	}
	fields := make(logrus.Fields, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			fields["error"] = v.Error()
		case map[string]interface{}:
			for k, val := range v {
				fields[k] = val
			}
		default:
			fields["detail"] = v
		}
	}
	return fields
}

func (l LogrusLogger) Debug(msg string, args ...interface{}) {
	l.log.WithFields(l.fields(args)).Debug(msg)
}

func (l LogrusLogger) Info(msg string, args ...interface{}) {
	l.log.WithFields(l.fields(args)).Info(msg)
}

func (l LogrusLogger) Warn(msg string, args ...interface{}) {
	l.log.WithFields(l.fields(args)).Warn(msg)
}

func (l LogrusLogger) Error(msg string, args ...interface{}) {
	l.log.WithFields(l.fields(args)).Error(msg)
}

func (l LogrusLogger) Fatal(msg string, args ...interface{}) {
	l.log.WithFields(l.fields(args)).Fatal(msg)
}
