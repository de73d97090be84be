package logring

import (
	"context"
	"log/slog"
	"strings"
)

// Handler is a slog.Handler that appends records to a Ring.
type Handler struct {
	ring   *Ring
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewHandler returns a handler writing records at or above level into ring.
// A nil level means slog.LevelInfo.
func NewHandler(ring *Ring, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{ring: ring, level: level}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+rec.NumAttrs())
	prefix := strings.Join(h.groups, ".")

	for _, a := range h.attrs {
		addAttr(attrs, "", a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		addAttr(attrs, prefix, a)
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}

	h.ring.Append(Entry{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
		Attrs:   attrs,
	})
	return nil
}

func (h *Handler) WithAttrs(as []slog.Attr) slog.Handler {
	out := *h
	prefix := strings.Join(h.groups, ".")
	out.attrs = make([]slog.Attr, 0, len(h.attrs)+len(as))
	out.attrs = append(out.attrs, h.attrs...)
	for _, a := range as {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		out.attrs = append(out.attrs, a)
	}
	return &out
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.groups = append(append([]string(nil), h.groups...), name)
	return &out
}

func addAttr(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(dst, key, ga)
		}
		return
	}
	dst[key] = a.Value.String()
}
