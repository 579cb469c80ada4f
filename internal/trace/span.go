package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns the next process-wide event sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a fresh span ID; 0 is never handed out.
func NextSpanID() uint64 { return spanCounter.Add(1) }

// goroutineID reads N from the "goroutine N [running]:" header that
// runtime.Stack prints first. Returns 0 if the header is not recognised.
func goroutineID() uint64 {
	var buf [64]byte
	hdr := buf[:runtime.Stack(buf[:], false)]
	hdr = bytes.TrimPrefix(hdr, []byte("goroutine "))
	if i := bytes.IndexByte(hdr, ' '); i > 0 {
		hdr = hdr[:i]
	}
	id, err := strconv.ParseUint(string(hdr), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Span is an open begin/end pair. Spans from a disabled tracer, or whose
// scope the level filters out, are inert.
type Span struct {
	tracer Tracer
	begin  Event // End переиспользует поля начала
	extra  map[string]string
}

// Begin emits a span-begin event under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{}
	}
	ev := Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   NextSpanID(),
		ParentID: parent,
		GID:      goroutineID(),
		Name:     name,
	}
	t.Emit(&ev)
	return &Span{tracer: t, begin: ev}
}

func (s *Span) live() bool {
	return s != nil && s.tracer != nil && s.tracer.Enabled()
}

// End emits the span-end event and returns the elapsed time.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	ev := s.begin
	ev.Time = time.Now()
	ev.Seq = NextSeq()
	ev.Kind = KindSpanEnd
	ev.Detail = detail
	ev.Extra = s.extra
	s.tracer.Emit(&ev)
	return ev.Time.Sub(s.begin.Time)
}

// WithExtra attaches a key/value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = map[string]string{}
	}
	s.extra[key] = value
	return s
}

func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.begin.SpanID
}
