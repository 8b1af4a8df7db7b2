package tracking

import "github.com/labstack/gommon/log"

// Logger is the subset of echo's logger the widget writes to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

func defaultLogger() Logger {
	l := log.New("tracking")
	l.SetLevel(log.INFO)
	return l
}
