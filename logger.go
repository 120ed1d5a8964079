package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

var (
	errorLogger *log.Logger
	debugLogger *log.Logger
)

// openLog returns stdout teed into logs/<kind>-<timestamp>.log, or plain
// stdout when the file cannot be created.
func openLog(kind string) io.Writer {
	logDir := filepath.Join(baseDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Printf("could not create log directory: %v\n", err)
		return os.Stdout
	}
	ts := time.Now().Format("20060102-150405")
	f, err := os.Create(filepath.Join(logDir, fmt.Sprintf("%s-%s.log", kind, ts)))
	if err != nil {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, f)
}

func setupLogging(debug bool) {
	w := openLog("error")
	errorLogger = log.New(w, "", log.LstdFlags)
	log.SetOutput(w)

	setDebugLogging(debug)
}

func setDebugLogging(enabled bool) {
	if !enabled {
		debugLogger = nil
		return
	}
	debugLogger = log.New(openLog("debug"), "", log.LstdFlags|log.Lmicroseconds)
}

func logError(format string, v ...any) {
	if errorLogger != nil {
		errorLogger.Printf(format, v...)
	}
}

// logWarn is for recoverable trouble: fallbacks, reconnects and dropped
// messages.
func logWarn(format string, v ...any) {
	if errorLogger != nil {
		errorLogger.Printf("warn: "+format, v...)
	}
}

func logDebug(format string, v ...any) {
	if debugLogger != nil {
		debugLogger.Printf(format, v...)
	}
}

// componentLog tags a package's log lines with its name. Packages report
// through debug logging; the frame loop escalates what users should see.
func componentLog(name string) func(string, ...any) {
	prefix := "[" + name + "] "
	return func(format string, v ...any) {
		logDebug(prefix+format, v...)
	}
}
