package main

import (
	"io"
	"io/ioutil"

	"github.com/alexcesaro/log"
	"github.com/alexcesaro/log/golog"
	"github.com/vipnode/commutator/commutator"
)

var logger *golog.Logger

var logLevels = []log.Level{
	log.Warning,
	log.Info,
	log.Debug,
}

// SetLogger overrides the main logger of this command.
func SetLogger(l *golog.Logger) {
	logger = l
}

// setVerbosity picks the log level for numVerbose repeats of -v. At the
// debug level the library logs to w as well.
func setVerbosity(numVerbose int, w io.Writer) log.Level {
	if numVerbose >= len(logLevels) {
		numVerbose = len(logLevels) - 1
	}
	level := logLevels[numVerbose]
	SetLogger(golog.New(w, level))
	if level == log.Debug {
		// Enable logging from subpackages
		commutator.SetLogger(w)
	}
	return level
}

func init() {
	// Set a default null logger
	SetLogger(golog.New(ioutil.Discard, log.Debug))
}
