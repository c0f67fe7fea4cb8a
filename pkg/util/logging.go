package util

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogger initializing default logger; errors go to stderr and
// everything else to stdout, and if logDir is set then also to
// errors.log and standard.log within that directory
func DefaultLogger(debugMode bool, logDir string) (*zap.Logger, error) {
	logDir = strings.TrimSpace(logDir)

	minLevel := zapcore.InfoLevel
	if debugMode {
		minLevel = zapcore.DebugLevel
	}

	//---------------------------------------------------------------------------
	// log enablers and conjunction
	//---------------------------------------------------------------------------
	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= minLevel && lvl < zapcore.ErrorLevel
	})

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), highPriority),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), lowPriority),
	}

	//---------------------------------------------------------------------------
	// if logDir is empty, then returning a simple logger for stdout & stderr
	//---------------------------------------------------------------------------
	if logDir == "" {
		return zap.New(zapcore.NewTee(cores...)), nil
	}

	// creating log directory if it doesn't exist
	if err := CreateDirectoryIfNotExists(logDir, 0755); err != nil {
		return nil, err
	}

	errFile, err := openLogFile(filepath.Join(logDir, "errors.log"))
	if err != nil {
		return nil, err
	}

	stdFile, err := openLogFile(filepath.Join(logDir, "standard.log"))
	if err != nil {
		errFile.Close()
		return nil, err
	}

	jsonEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	cores = append(
		cores,
		zapcore.NewCore(jsonEncoder, zapcore.Lock(errFile), highPriority),
		zapcore.NewCore(jsonEncoder, zapcore.Lock(stdFile), lowPriority),
	)

	return zap.New(zapcore.NewTee(cores...)), nil
}

func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open log file %s", path)
	}

	return f, nil
}
