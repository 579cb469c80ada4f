package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Tracer is the main interface for emitting trace events.
type Tracer interface {
	// Emit records an event. Must be safe for concurrent use: batch
	// builds trace several configuration files at once.
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory for a dump
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string { return nameOf(modeNames[:], int(m)) }

func ParseMode(s string) (StorageMode, error) {
	i, ok := indexOf(modeNames[:], s)
	if !ok {
		return ModeRing, fmt.Errorf("invalid storage mode %q (expected stream|ring|both)", s)
	}
	return StorageMode(i), nil //nolint:gosec // i < len(modeNames)
}

// Config describes the tracer built by New.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format    // FormatAuto picks NDJSON for .json/.ndjson paths
	Output     io.Writer // wins over OutputPath
	OutputPath string    // "-" or empty means stderr
	RingSize   int       // <= 0 means the default ring size
}

func (c Config) format() Format {
	if c.Format != FormatAuto {
		return c.Format
	}
	switch filepath.Ext(c.OutputPath) {
	case ".json", ".ndjson":
		return FormatNDJSON
	}
	return FormatText
}

func (c Config) streams() bool { return c.Mode == ModeStream || c.Mode == ModeBoth }
func (c Config) rings() bool   { return c.Mode == ModeRing || c.Mode == ModeBoth }

// New builds the tracer cfg describes; LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if !cfg.streams() && !cfg.rings() {
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}
	var parts []Tracer
	if cfg.streams() {
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		parts = append(parts, NewStreamTracer(w, cfg.Level, cfg.format()))
	}
	if cfg.rings() {
		parts = append(parts, NewRingTracer(cfg.RingSize, cfg.Level))
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return NewMultiTracer(cfg.Level, parts...), nil
}

func openOutput(cfg Config) (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		return os.Stderr, nil
	}
	f, err := os.Create(cfg.OutputPath) // #nosec G304 -- path comes from --trace
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}

// Point emits an instant event when scope passes the tracer level.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		GID:      goroutineID(),
		Name:     name,
		Detail:   detail,
	})
}

// RingOf returns the ring buffer behind t, if it has one.
func RingOf(t Tracer) *RingTracer {
	switch tr := t.(type) {
	case *RingTracer:
		return tr
	case *MultiTracer:
		return tr.Ring()
	}
	return nil
}

// DumpRing writes the ring buffer of t, if any, to w.
func DumpRing(t Tracer, w io.Writer, format Format) error {
	if r := RingOf(t); r != nil {
		return r.Dump(w, format)
	}
	return nil
}
