/*
NAME
  logger.go - concrete file-rotating logger.

DESCRIPTION
  See Readme.md

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/tsinspect/internal/engine"
)

// Log file rotation parameters, matching the teacher's own
// cmd/looper/main.go constants.
const (
	logMaxSizeMB  = 500
	logMaxBackups = 10
	logMaxAgeDays = 28
)

// fileLogger is a minimal engine.Logger backed by a rotating file and,
// optionally, stderr. It does not depend on ausocean/utils/logging (a
// dropped teacher dependency, see DESIGN.md); it reimplements just the
// level-gated, key/value message shape that package's callers rely on.
type fileLogger struct {
	runID string
	level int8
	out   *log.Logger
}

// newFileLogger opens (or creates) path for rotating writes via
// lumberjack, tagging every line with runID, and also echoing to
// stderr when echo is true.
func newFileLogger(path, runID string, level int8, echo bool) *fileLogger {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	}
	var w interface {
		Write([]byte) (int, error)
	}
	if echo {
		w = multiWriter{rotator, os.Stderr}
	} else {
		w = rotator
	}
	return &fileLogger{
		runID: runID,
		level: level,
		out:   log.New(w, "", log.LstdFlags|log.LUTC),
	}
}

type multiWriter []interface {
	Write([]byte) (int, error)
}

func (m multiWriter) Write(p []byte) (int, error) {
	for _, w := range m {
		if _, err := w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (l *fileLogger) SetLevel(level int8) { l.level = level }

func (l *fileLogger) log(level int8, tag, msg string, params ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Println(format(l.runID, tag, msg, params...))
}

func format(runID, tag, msg string, params ...interface{}) string {
	s := fmt.Sprintf("[%s] %s: %s", runID, tag, msg)
	for i := 0; i+1 < len(params); i += 2 {
		s += fmt.Sprintf(" %v=%v", params[i], params[i+1])
	}
	return s
}

func (l *fileLogger) Debug(msg string, params ...interface{})   { l.log(engine.Debug, "debug", msg, params...) }
func (l *fileLogger) Info(msg string, params ...interface{})    { l.log(engine.Info, "info", msg, params...) }
func (l *fileLogger) Warning(msg string, params ...interface{}) { l.log(engine.Warning, "warning", msg, params...) }
func (l *fileLogger) Error(msg string, params ...interface{})   { l.log(engine.Error, "error", msg, params...) }
func (l *fileLogger) Fatal(msg string, params ...interface{}) {
	l.log(engine.Fatal, "fatal", msg, params...)
	os.Exit(1)
}
