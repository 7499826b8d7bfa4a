// Package trace provides the tracer capability handed to every extension
// callback site.
//
// A Tracer is passed explicitly rather than read from a global. Callers check
// IsTracing first and only build section names when it returns true, so an
// untraced mount pass pays nothing for instrumentation.
package trace

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Tracer opens and closes named, nested sections.
type Tracer interface {
	IsTracing() bool
	BeginSection(name string)
	EndSection()
}

// Nop is a Tracer that is never active.
type Nop struct{}

func (Nop) IsTracing() bool     { return false }
func (Nop) BeginSection(string) {}
func (Nop) EndSection()         {}

const defaultRecorderCapacity = 512

// Section is a completed trace section.
type Section struct {
	Name     string        `json:"name"`
	Depth    int           `json:"depth"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

type openSection struct {
	name  string
	start time.Time
}

// Recorder is a Tracer that keeps recent completed sections in a ring buffer.
type Recorder struct {
	mu         sync.Mutex
	enabled    bool
	open       []openSection
	sections   []Section
	index      int
	count      int
	unbalanced int
	now        func() time.Time
}

// NewRecorder creates an enabled recorder holding up to capacity sections.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultRecorderCapacity
	}
	return &Recorder{
		enabled:  true,
		sections: make([]Section, capacity),
		now:      time.Now,
	}
}

// SetEnabled toggles whether IsTracing reports true.
func (r *Recorder) SetEnabled(enabled bool) {
	r.mu.Lock()
	r.enabled = enabled
	r.mu.Unlock()
}

func (r *Recorder) IsTracing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *Recorder) BeginSection(name string) {
	r.mu.Lock()
	r.open = append(r.open, openSection{name: name, start: r.now()})
	r.mu.Unlock()
}

// EndSection closes the innermost open section. An EndSection without a
// matching BeginSection is counted in Unbalanced.
func (r *Recorder) EndSection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.open) == 0 {
		r.unbalanced++
		return
	}
	top := r.open[len(r.open)-1]
	r.open = r.open[:len(r.open)-1]
	r.sections[r.index] = Section{
		Name:     top.name,
		Depth:    len(r.open),
		Start:    top.start,
		Duration: r.now().Sub(top.start),
	}
	r.index = (r.index + 1) % len(r.sections)
	if r.count < len(r.sections) {
		r.count++
	}
}

// OpenDepth returns the number of sections begun but not yet ended.
func (r *Recorder) OpenDepth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}

// Unbalanced returns the number of EndSection calls that had nothing to close.
func (r *Recorder) Unbalanced() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbalanced
}

// Snapshot returns completed sections in the order they were closed.
func (r *Recorder) Snapshot() []Section {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Section, r.count)
	if r.count < len(r.sections) {
		copy(result, r.sections[:r.count])
	} else {
		copy(result, r.sections[r.index:])
		copy(result[len(r.sections)-r.index:], r.sections[:r.index])
	}
	return result
}

// Names returns the names of completed sections in close order.
func (r *Recorder) Names() []string {
	snap := r.Snapshot()
	names := make([]string, len(snap))
	for i, s := range snap {
		names[i] = s.Name
	}
	return names
}

// Reset drops all recorded and open sections.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.open = nil
	r.index = 0
	r.count = 0
	r.unbalanced = 0
	r.mu.Unlock()
}

// Log is a Tracer that writes each closed section to a zerolog logger at
// trace level. It is active whenever the logger would emit trace entries.
type Log struct {
	logger zerolog.Logger
	rec    *Recorder
}

// NewLog creates a Log tracer.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger, rec: NewRecorder(1)}
}

func (l *Log) IsTracing() bool {
	return l.logger.GetLevel() <= zerolog.TraceLevel && zerolog.GlobalLevel() <= zerolog.TraceLevel
}

func (l *Log) BeginSection(name string) {
	l.rec.BeginSection(name)
}

func (l *Log) EndSection() {
	before := l.rec.Unbalanced()
	l.rec.EndSection()
	if l.rec.Unbalanced() != before {
		l.logger.Warn().Msg("trace section ended without begin")
		return
	}
	snap := l.rec.Snapshot()
	s := snap[len(snap)-1]
	l.logger.Trace().
		Str("section", s.Name).
		Int("depth", s.Depth).
		Dur("took", s.Duration).
		Msg("trace")
}
