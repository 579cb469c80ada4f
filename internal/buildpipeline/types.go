// Package buildpipeline describes progress of batch generation runs.
package buildpipeline

import "time"

// Stage is a step of generating one configuration file.
type Stage string

const (
	StageLoad   Stage = "load"   // read and resolve the configuration
	StageExpand Stage = "expand" // prototypes, typemaps, intents, variants
	StageRender Stage = "render"
	StageWrite  Stage = "write"
)

// Stages lists the stages in execution order.
var Stages = []Stage{StageLoad, StageExpand, StageRender, StageWrite}

const stageCount = 4

// Index is the position of s in Stages, or -1 for an unknown stage.
func (s Stage) Index() int {
	switch s {
	case StageLoad:
		return 0
	case StageExpand:
		return 1
	case StageRender:
		return 2
	case StageWrite:
		return 3
	}
	return -1
}

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusCached  Status = "cached" // module data came from the disk cache
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one configuration file, or for the whole
// batch when File is empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
	Kernels int // variants produced, set on StageExpand done
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds per-stage durations, summed over every file of a batch.
// The zero value is ready to use and copies by value.
type Timings struct {
	d   [stageCount]time.Duration
	set uint8 // бит i: стадия Stages[i] записана
}

// Add accumulates dur for stage; unknown stages are ignored.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	i := stage.Index()
	if t == nil || i < 0 {
		return
	}
	t.d[i] += dur
	t.set |= 1 << i
}

// Has reports whether stage finished at least once.
func (t Timings) Has(stage Stage) bool {
	i := stage.Index()
	return i >= 0 && t.set&(1<<i) != 0
}

func (t Timings) Duration(stage Stage) time.Duration {
	if i := stage.Index(); i >= 0 {
		return t.d[i]
	}
	return 0
}

func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += t.Duration(stage)
	}
	return total
}
