package utils

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogxManager hands out one logger per node label. With an empty base path
// loggers write to stderr; otherwise each label gets its own directory with
// info.log, error.log and debug.log.
type LogxManager struct {
	basePath string
	debug    bool
	loggers  map[string]*zap.Logger
	mu       sync.RWMutex
}

func NewManager(base string, debug bool) *LogxManager {
	m := &LogxManager{basePath: base, debug: debug, loggers: make(map[string]*zap.Logger)}

	if m.basePath != "" {
		if err := os.MkdirAll(m.basePath, 0744); err != nil {
			log.Printf("failed to create base log dir %s: %v", m.basePath, err)
		}
	}
	return m
}

// Logger returns the logger for label, creating it on first use.
func (m *LogxManager) Logger(label string) *zap.Logger {
	m.mu.RLock()
	if lg, ok := m.loggers[label]; ok {
		m.mu.RUnlock()
		return lg
	}
	m.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if lg, ok := m.loggers[label]; ok {
		return lg
	}

	var lg *zap.Logger
	if m.basePath == "" {
		lg = m.consoleLogger()
	} else {
		lg = m.fileLogger(label)
	}
	lg = lg.With(zap.String("node", label))
	m.loggers[label] = lg
	return lg
}

func (m *LogxManager) minLevel() zapcore.Level {
	if m.debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func (m *LogxManager) consoleLogger() *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), m.minLevel())
	return zap.New(core)
}

func (m *LogxManager) fileLogger(label string) *zap.Logger {
	dir := filepath.Join(m.basePath, dirName(label))
	if err := os.MkdirAll(dir, 0744); err != nil {
		log.Printf("failed to create log dir %s: %v", dir, err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:     "ts",
		LevelKey:    "level",
		MessageKey:  "msg",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
		EncodeLevel: zapcore.CapitalLevelEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	infoOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "info.log")))
	errorOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "error.log")))

	infoLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.InfoLevel || l == zapcore.WarnLevel })
	errLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, infoOut, infoLv),
		zapcore.NewCore(encoder, errorOut, errLv),
	}
	if m.debug {
		dbgOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "debug.log")))
		dbgLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.DebugLevel })
		cores = append(cores, zapcore.NewCore(encoder, dbgOut, dbgLv))
	}
	return zap.New(zapcore.NewTee(cores...))
}

func (m *LogxManager) openLogFile(path string) *os.File {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", path, err)
		return os.Stderr
	}
	return f
}

// Sync flushes every logger handed out so far.
func (m *LogxManager) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var err error
	for _, lg := range m.loggers {
		err = multierr.Append(err, lg.Sync())
	}
	return err
}

// dirName makes a node label safe to use as a directory name.
func dirName(label string) string {
	return strings.NewReplacer(":", "_", "[", "", "]", "", "/", "_").Replace(label)
}
