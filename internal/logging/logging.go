package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"elevator_dispatch/internal/config"

	slogmulti "github.com/samber/slog-multi"
)

// Setup installs the default logger: colored console output on stdout plus
// an optional plain-text log file. The returned closer releases the file.
func Setup(config *config.Config) (io.Closer, error) {
	return SetupWriter(config, os.Stdout)
}

// SetupWriter is Setup with the console output sent to console instead of
// stdout.
func SetupWriter(config *config.Config, console io.Writer) (io.Closer, error) {
	level := slog.LevelInfo
	if isDebugEnabled(config.LoggingLevel) {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		NewConsoleHandler(console, &ConsoleHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				AddSource: true,
				Level:     level,
			},
			UseColor: isTerminal(console),
		}),
	}

	var closer io.Closer = nopCloser{}
	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{
			Level: level,
		}))
		closer = file
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
	return closer, nil
}

func isDebugEnabled(configLevel string) bool {
	if strings.ToLower(configLevel) == "debug" {
		return true
	}

	debugEnv := os.Getenv("DEBUG")
	if debugEnv == "" {
		return false
	}

	debugValue, err := strconv.ParseBool(debugEnv)
	if err != nil {
		return debugEnv == "1"
	}
	return debugValue
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
