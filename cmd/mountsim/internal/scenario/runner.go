package scenario

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-drift/mountref/pkg/config"
	"github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/extensions/debug"
	"github.com/go-drift/mountref/pkg/extensions/incremental"
	"github.com/go-drift/mountref/pkg/extensions/transition"
	"github.com/go-drift/mountref/pkg/extensions/visibility"
	"github.com/go-drift/mountref/pkg/geometry"
	"github.com/go-drift/mountref/pkg/mount"
	"github.com/go-drift/mountref/pkg/trace"
	"github.com/go-drift/mountref/pkg/transitions"
)

// Result is the outcome of a replayed scenario.
type Result struct {
	Session string          `yaml:"session"`
	Name    string          `yaml:"name"`
	Steps   []Step          `yaml:"steps"`
	Trace   []string        `yaml:"trace,omitempty"`
	Debug   *debug.Snapshot `yaml:"debug,omitempty"`
}

// Step records the host state after one operation.
type Step struct {
	Pass         int      `yaml:"pass"`
	Op           string   `yaml:"op"`
	Visible      string   `yaml:"visible"`
	Mounted      []int64  `yaml:"mounted"`
	Shown        []int64  `yaml:"shown,omitempty"`
	Disappearing []int64  `yaml:"disappearing,omitempty"`
	Host         []string `yaml:"host,omitempty"`
	Events       []string `yaml:"events,omitempty"`
}

// Runner replays scenarios with the extensions of a resolved configuration.
type Runner struct {
	cfg     *config.Resolved
	logger  zerolog.Logger
	session uuid.UUID
}

// NewRunner creates a Runner. A nil session id generates a new one.
func NewRunner(cfg *config.Resolved, logger zerolog.Logger, session uuid.UUID) *Runner {
	if session == uuid.Nil {
		session = uuid.New()
	}
	return &Runner{cfg: cfg, logger: logger, session: session}
}

type session struct {
	mounter *mount.Mounter
	host    *mount.MemoryHost
	rec     *trace.Recorder
	events  []string

	trans   *transition.Extension
	transES *mount.ExtensionState[*transition.State]
	visES   *mount.ExtensionState[*visibility.State]
	debugES *mount.ExtensionState[*debug.State]
}

// Run replays sc and detaches the session at the end. The partial result is
// returned alongside any error.
func (r *Runner) Run(sc *Scenario) (*Result, error) {
	s, err := r.start(sc)
	if err != nil {
		return nil, err
	}
	res := &Result{Session: r.session.String(), Name: sc.Name}
	if res.Name == "" {
		res.Name = r.cfg.Name
	}
	log := r.logger.With().Str("scenario", res.Name).Logger()

	visible := r.cfg.Visible
	hasVisible := r.cfg.HasVisible
	for i, p := range sc.Passes {
		if p.Visible != nil {
			visible = *p.Visible
			hasVisible = true
		}
		if !hasVisible {
			return res, &errors.MountError{Op: "scenario.Run", Kind: errors.KindConfig, Err: fmt.Errorf("pass %d: no visible rect", i+1)}
		}
		tree, err := sc.Tree(i, visible)
		if err != nil {
			return res, err
		}
		log.Debug().Int("pass", i+1).Int("items", tree.Len()).Stringer("visible", visible).Msg("mount pass")
		if err := s.mounter.Mount(tree, visible); err != nil {
			return res, err
		}
		res.Steps = append(res.Steps, s.step(i+1, "mount", visible))

		for _, sh := range p.Scrolls {
			visible = visible.Translate(sh.DX, sh.DY)
			if err := s.mounter.SetVisibleBounds(visible); err != nil {
				return res, err
			}
			res.Steps = append(res.Steps, s.step(i+1, "scroll", visible))
		}

		if len(p.End) > 0 {
			if s.trans == nil {
				return res, &errors.MountError{Op: "scenario.Run", Kind: errors.KindConfig, Err: fmt.Errorf("pass %d: end requires the %s extension", i+1, transition.Name)}
			}
			for _, id := range p.End {
				if err := s.trans.EndDisappearing(s.transES, id); err != nil {
					return res, err
				}
			}
			res.Steps = append(res.Steps, s.step(i+1, "end", visible))
		}
	}

	if s.debugES != nil {
		snap := s.debugES.State().Snapshot()
		res.Debug = &snap
	}
	if err := s.mounter.Detach(); err != nil {
		return res, err
	}
	res.Steps = append(res.Steps, s.step(len(sc.Passes), "detach", visible))
	if s.rec != nil {
		res.Trace = s.rec.Names()
		if n := s.rec.Unbalanced(); n != 0 || s.rec.OpenDepth() != 0 {
			log.Warn().Int("unbalanced", n).Int("open", s.rec.OpenDepth()).Msg("trace sections unbalanced")
		}
	}
	return res, nil
}

func (r *Runner) start(sc *Scenario) (*session, error) {
	s := &session{host: mount.NewMemoryHost()}

	var tracer trace.Tracer = trace.NewLog(r.logger)
	if r.cfg.TraceEnabled {
		s.rec = trace.NewRecorder(r.cfg.TraceCapacity)
		tracer = s.rec
	}
	s.mounter = mount.NewMounter(s.host, mount.Options{
		RenderStateID:    r.cfg.RenderStateID,
		DelegateMounting: r.cfg.DelegateMounting,
		DelegateOptions: []mount.DelegateOption{
			mount.WithTracer(tracer),
			mount.WithLogger(r.logger),
			mount.WithSessionID(r.session),
		},
	})
	d := s.mounter.Delegate()

	for _, name := range r.cfg.Extensions {
		switch name {
		case transition.Name:
			rootID, _ := sc.TransitionID(mount.RootID)
			ext, err := transition.New(transition.Options{
				Resolve: func(u mount.RenderUnit) (transitions.ID, bool) {
					return sc.TransitionID(u.ID())
				},
				RootID:   rootID,
				OwnerKey: sc.Name,
			}, sc.BuildTransitions()...)
			if err != nil {
				return nil, err
			}
			s.trans = ext
			s.transES = mount.Register[*transition.State](d, ext)
		case incremental.Name:
			mount.Register[*incremental.State](d, incremental.New())
		case visibility.Name:
			s.visES = mount.Register[*visibility.State](d, visibility.New(visibility.Handlers{
				OnVisible:   func(id int64) { s.events = append(s.events, "visible "+strconv.FormatInt(id, 10)) },
				OnInvisible: func(id int64) { s.events = append(s.events, "invisible "+strconv.FormatInt(id, 10)) },
			}))
		case debug.Name:
			s.debugES = mount.Register[*debug.State](d, debug.New())
		default:
			return nil, &errors.MountError{Op: "scenario.Run", Kind: errors.KindConfig, Err: fmt.Errorf("unknown extension %q", name)}
		}
	}
	if len(sc.Transitions) > 0 && s.trans == nil {
		r.logger.Warn().Int("transitions", len(sc.Transitions)).Msg("transitions declared without the transition extension")
	}
	return s, nil
}

func (s *session) step(pass int, op string, visible geometry.Rect) Step {
	st := Step{
		Pass:    pass,
		Op:      op,
		Visible: visible.String(),
		Mounted: s.mounter.MountedIDs(),
		Events:  s.events,
	}
	for _, e := range s.host.Events() {
		st.Host = append(st.Host, e.String())
	}
	if s.visES != nil {
		st.Shown = s.visES.State().VisibleIDs()
	}
	if s.transES != nil {
		st.Disappearing = s.transES.State().Disappearing()
	}
	s.host.Reset()
	s.events = nil
	return st
}
