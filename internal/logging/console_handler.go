package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	Bold  = "\033[1m"
	Reset = "\033[0m"
)

const (
	FgRed    = "\033[31m"
	FgGreen  = "\033[32m"
	FgYellow = "\033[33m"
	FgBlue   = "\033[34m"
	FgGray   = "\033[37m"
)

const BgDefault = "\033[49m"

type PrintConfig struct {
	FgColor string
	BgColor string
	Bold    bool
}

func (cfg PrintConfig) ColorFmt(format string, a ...any) string {
	var b strings.Builder
	if cfg.Bold {
		b.WriteString(Bold)
	}
	b.WriteString(cfg.FgColor)
	b.WriteString(cfg.BgColor)
	fmt.Fprintf(&b, format, a...)
	b.WriteString(Reset)
	return b.String()
}

var (
	GreenOnWhite  = PrintConfig{FgColor: FgGreen, BgColor: BgDefault}
	RedOnWhite    = PrintConfig{FgColor: FgRed, BgColor: BgDefault, Bold: true}
	BlueOnWhite   = PrintConfig{FgColor: FgBlue, BgColor: BgDefault}
	YellowOnWhite = PrintConfig{FgColor: FgYellow, BgColor: BgDefault}
	GrayOnWhite   = PrintConfig{FgColor: FgGray, BgColor: BgDefault}
)

var (
	levelToColor = map[slog.Level]PrintConfig{
		slog.LevelDebug: BlueOnWhite,
		slog.LevelInfo:  GreenOnWhite,
		slog.LevelWarn:  YellowOnWhite,
		slog.LevelError: RedOnWhite,
	}
	unknownLevelColor = RedOnWhite
)

type ConsoleHandlerOptions struct {
	SlogOpts slog.HandlerOptions
	UseColor bool
}

// ConsoleHandler writes one line per record:
// time, source, level, message, then key=value attributes.
type ConsoleHandler struct {
	opts ConsoleHandlerOptions
	goas []groupOrAttrs

	mu *sync.Mutex
	w  io.Writer
}

func NewConsoleHandler(out io.Writer, opts *ConsoleHandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{w: out, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.SlogOpts.Level != nil {
		minLevel = h.opts.SlogOpts.Level.Level()
	}
	return level >= minLevel
}

func (h *ConsoleHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(r.Time.Format(time.RFC3339))
	buf.WriteString(" ")

	if h.opts.SlogOpts.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		buf.WriteString(fmt.Sprintf("%s:%d", relativeSource(f.File), f.Line))
	}

	buf.WriteString("\t")

	level := r.Level.String()
	if h.opts.UseColor {
		color, ok := levelToColor[r.Level]
		if !ok {
			color = unknownLevelColor
		}
		level = color.ColorFmt("%s", level)
	}
	buf.WriteString(level)
	buf.WriteString("\t")
	buf.WriteString(r.Message)

	prefix := ""
	for _, goa := range h.goas {
		if goa.group != "" {
			prefix += goa.group + "."
			continue
		}
		for _, a := range goa.attrs {
			h.appendAttr(&buf, prefix, a)
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&buf, prefix, a)
		return true
	})
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *ConsoleHandler) appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(buf, prefix, ga)
		}
		return
	}

	key := prefix + a.Key
	if h.opts.UseColor {
		key = GrayOnWhite.ColorFmt("%s", key)
	}
	fmt.Fprintf(buf, " %s=%v", key, a.Value.Any())
}

func relativeSource(file string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return file
	}
	rel, err := filepath.Rel(cwd, file)
	if err != nil {
		return file
	}
	return rel
}

type groupOrAttrs struct {
	group string      // group name if non-empty
	attrs []slog.Attr // attrs if non-empty
}

func (h *ConsoleHandler) withGroupOrAttrs(goa groupOrAttrs) *ConsoleHandler {
	h2 := *h
	h2.goas = make([]groupOrAttrs, len(h.goas)+1)
	copy(h2.goas, h.goas)
	h2.goas[len(h2.goas)-1] = goa
	return &h2
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.withGroupOrAttrs(groupOrAttrs{group: name})
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.withGroupOrAttrs(groupOrAttrs{attrs: attrs})
}
