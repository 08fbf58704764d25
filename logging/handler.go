// Package logging wires the process-wide slog default handler. The cmd
// root command calls Init from its PersistentPreRunE, before any
// subcommand runs.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// componentPrefixHandler prefixes each log line with "[component]" instead
// of interleaving it as a key/value pair, generalized from the teacher's
// module-prefix handler (there keyed on "module"; the core's components
// log with "component", see engine/registry.go's logger.With calls).
type componentPrefixHandler struct {
	handler   slog.Handler
	component string
}

func (h *componentPrefixHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *componentPrefixHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	var rest []slog.Attr
	for _, a := range attrs {
		if a.Key == "component" {
			component = a.Value.String()
		} else {
			rest = append(rest, a)
		}
	}
	return &componentPrefixHandler{handler: h.handler.WithAttrs(rest), component: component}
}

func (h *componentPrefixHandler) WithGroup(name string) slog.Handler {
	return &componentPrefixHandler{handler: h.handler.WithGroup(name), component: h.component}
}

func (h *componentPrefixHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.component == "" {
		return h.handler.Handle(ctx, r)
	}
	rec := slog.NewRecord(r.Time, r.Level, "["+h.component+"] "+r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		rec.AddAttrs(a)
		return true
	})
	return h.handler.Handle(ctx, rec)
}

// Init installs the colored tint-backed slog default handler. debug raises
// the level to Debug; otherwise only Info and above are logged, per
// spec.md §6's "debug (bool; affects only logging)".
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := &componentPrefixHandler{
		handler: tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	}
	slog.SetDefault(slog.New(handler))
}
