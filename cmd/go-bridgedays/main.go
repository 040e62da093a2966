package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tartampluch/go-bridgedays/internal/config"
)

// main is the application entry point.
// It delegates execution to runMain so deferred calls run before the
// process terminates.
func main() {
	os.Exit(runMain())
}

// runMain executes the command tree and maps the outcome to an exit code.
func runMain() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCLI(os.Stdout, os.Stderr).execute(ctx, os.Args[1:]); err != nil {
		return config.ExitCodeError
	}
	return config.ExitCodeSuccess
}

// printVersion outputs the build information.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
		config.Commit,
		config.Date,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo(log *zap.Logger) {
	log.Info(config.MsgAppStarting,
		zap.String(config.LogKeyComponent, config.CompMain),
		zap.Object(config.LogKeyBuild, zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
			enc.AddString(config.LogKeyApp, config.AppName)
			enc.AddString(config.LogKeyVersion, config.Version)
			enc.AddString(config.LogKeyCommit, config.Commit)
			enc.AddString(config.LogKeyGoVer, runtime.Version())
			return nil
		})),
		zap.Object(config.LogKeyEnv, zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
			enc.AddString(config.LogKeyOS, runtime.GOOS)
			enc.AddString(config.LogKeyArch, runtime.GOARCH)
			enc.AddInt(config.LogKeyPID, os.Getpid())
			return nil
		})),
	)
}

// setupLogging builds a logger writing human readable lines to stderr and
// JSON lines to a rotated file. A file that cannot be opened only costs the
// file output.
func setupLogging(ls config.LogSettings, debug bool, stderr io.Writer) (*zap.Logger, io.Closer) {
	level := zapcore.InfoLevel
	if l, err := zapcore.ParseLevel(ls.Level); err == nil {
		level = l
	}
	if debug {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(stderr), level),
	}

	var closer io.Closer
	path := ls.File
	if path == "" {
		p, err := getLogFilePath()
		if err != nil {
			fmt.Fprintf(stderr, config.MsgLogWarning, config.ErrLogFile, "", err)
		}
		path = p
	}
	if path != "" {
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    config.LogMaxSizeMB,
			MaxBackups: config.LogMaxBackups,
			MaxAge:     config.LogMaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			level,
		))
		closer = rotator
	}

	opts := []zap.Option{}
	if debug {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), closer
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
