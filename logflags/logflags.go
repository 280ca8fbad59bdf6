// Package logflags holds the per-layer loggers of razdbg. Every layer is
// silent unless it was enabled with Setup.
package logflags

import (
	"errors"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var tracer = false
var symbols = false
var terminal = false

var logOut io.Writer = os.Stderr

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Out = logOut
	logger.Logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Tracer returns true if the common package should log ptrace activity.
func Tracer() bool {
	return tracer
}

// TracerLogger returns a logger for process control and breakpoints.
func TracerLogger() *logrus.Entry {
	return makeLogger(tracer, logrus.Fields{"layer": "tracer"})
}

// Symbols returns true if debug info loading should be logged.
func Symbols() bool {
	return symbols
}

// SymbolsLogger returns a logger for the data package.
func SymbolsLogger() *logrus.Entry {
	return makeLogger(symbols, logrus.Fields{"layer": "symbols"})
}

// Terminal returns true if command dispatch should be logged.
func Terminal() bool {
	return terminal
}

// TerminalLogger returns a logger for the front-ends.
func TerminalLogger() *logrus.Entry {
	return makeLogger(terminal, logrus.Fields{"layer": "terminal"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets debugger flags based on the contents of logstr.
// If logDest is not empty logs are appended to that file instead of stderr.
func Setup(logFlag bool, logstr string, logDest string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}

	if logDest != "" {
		f, err := os.OpenFile(logDest, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		logOut = f
		log.SetOutput(f)
	}

	if logstr == "" {
		logstr = "tracer"
	}
	v := strings.Split(logstr, ",")
	for _, logcmd := range v {
		switch logcmd {
		case "tracer":
			tracer = true
		case "symbols":
			symbols = true
		case "terminal":
			terminal = true
		}
	}
	return nil
}

// Reset disables every layer and sends logs to stderr again.
func Reset() {
	tracer = false
	symbols = false
	terminal = false
	logOut = os.Stderr
}
