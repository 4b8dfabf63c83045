// Package selection is the form adapter between user input and the
// indicator backend. It owns the raw text and the selected indicators,
// turns them into a request on submit, and publishes the outcome as view
// state.
//
// All mutations go through Adapter methods; readers take a Snapshot. Each
// submission gets a sequence number and cancels any earlier one still in
// flight, so only the newest submission can change what is displayed.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"indicadores/internal/backend"
	"indicadores/internal/catalog"
	"indicadores/internal/history"

	"go.uber.org/zap"
)

// ErrUnknownIndicator is returned when selecting an id outside the catalog.
var ErrUnknownIndicator = errors.New("unknown indicator")

// Submitter performs the backend call. *backend.Client implements it.
type Submitter interface {
	TestIndicators(ctx context.Context, req backend.Request) (backend.Payload, error)
}

// Recorder observes finished submissions.
type Recorder interface {
	ObserveSubmission(outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSubmission(string, time.Duration) {}

// Status is the adapter's display phase.
type Status int

const (
	StatusIdle Status = iota
	StatusAwaiting
	StatusDisplaying
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAwaiting:
		return "awaiting"
	case StatusDisplaying:
		return "displaying"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the view state. Snapshot returns copies; mutating them has no
// effect on the adapter.
type State struct {
	RawText  string
	Selected []string

	// Set when a submission starts.
	Numbers []int
	Pending uint64

	// Set by the latest completed submission.
	Seq    uint64
	Status Status
	Result backend.Payload
	Err    error
}

// Adapter is the selection form adapter. It is safe for concurrent use.
type Adapter struct {
	client   Submitter
	recorder Recorder
	history  *history.History
	logger   *zap.Logger

	mu     sync.Mutex
	state  State
	seq    uint64
	cancel context.CancelFunc
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Adapter) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithHistory records every non-superseded outcome into h.
func WithHistory(h *history.History) Option {
	return func(a *Adapter) { a.history = h }
}

// WithLogger attaches a logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter returns an idle adapter that submits through client.
func NewAdapter(client Submitter, opts ...Option) *Adapter {
	a := &Adapter{
		client:   client,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		state: State{
			Selected: []string{},
			Numbers:  []int{},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetRawText replaces the raw input text.
func (a *Adapter) SetRawText(raw string) {
	a.mu.Lock()
	a.state.RawText = raw
	a.mu.Unlock()
}

// Select adds id to the selection. Selecting an already selected id is a
// no-op; ids outside the catalog are rejected.
func (a *Adapter) Select(id string) error {
	if !catalog.IsKnown(id) {
		return fmt.Errorf("%w: %q", ErrUnknownIndicator, id)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if indexOf(a.state.Selected, id) < 0 {
		a.state.Selected = append(a.state.Selected, id)
	}
	return nil
}

// Deselect removes id from the selection if present.
func (a *Adapter) Deselect(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i := indexOf(a.state.Selected, id); i >= 0 {
		a.state.Selected = append(a.state.Selected[:i], a.state.Selected[i+1:]...)
	}
}

// Toggle flips id's membership and reports whether it is now selected.
func (a *Adapter) Toggle(id string) (bool, error) {
	if !catalog.IsKnown(id) {
		return false, fmt.Errorf("%w: %q", ErrUnknownIndicator, id)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if i := indexOf(a.state.Selected, id); i >= 0 {
		a.state.Selected = append(a.state.Selected[:i], a.state.Selected[i+1:]...)
		return false, nil
	}
	a.state.Selected = append(a.state.Selected, id)
	return true, nil
}

// SetSelection replaces the whole selection. Duplicates collapse to their
// first occurrence; any unknown id rejects the call.
func (a *Adapter) SetSelection(ids []string) error {
	if err := catalog.Validate(ids); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownIndicator, err)
	}
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if indexOf(next, id) < 0 {
			next = append(next, id)
		}
	}
	a.mu.Lock()
	a.state.Selected = next
	a.mu.Unlock()
	return nil
}

// ClearSelection empties the selection.
func (a *Adapter) ClearSelection() {
	a.mu.Lock()
	a.state.Selected = []string{}
	a.mu.Unlock()
}

// Snapshot returns a copy of the current view state.
func (a *Adapter) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.state
	s.Selected = append([]string{}, a.state.Selected...)
	s.Numbers = append([]int{}, a.state.Numbers...)
	if a.state.Result != nil {
		s.Result = append(backend.Payload(nil), a.state.Result...)
	}
	return s
}

// Cancel aborts the in-flight submission, if any. Its outcome is reported as
// superseded.
func (a *Adapter) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
		a.seq++
		if a.state.Status == StatusAwaiting {
			a.state.Status = StatusIdle
		}
	}
}

// Submit parses the raw text, sends one request with the current selection
// and blocks until it completes. A submission that is overtaken by a newer
// one (or by Cancel) returns OutcomeSuperseded and leaves the state alone.
func (a *Adapter) Submit(ctx context.Context) Outcome {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.seq++
	seq := a.seq
	numbers := ParseNumbers(a.state.RawText)
	indicators := append([]string{}, a.state.Selected...)
	reqCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.state.Numbers = numbers
	a.state.Pending = seq
	a.state.Status = StatusAwaiting
	a.mu.Unlock()
	defer cancel()

	log := a.logger.With(zap.Uint64("seq", seq))
	log.Debug("submitting selection", zap.Ints("dezenas", numbers), zap.Strings("indicadores", indicators))

	start := time.Now()
	payload, err := SubmitSelection(reqCtx, a.client, numbers, indicators)
	elapsed := time.Since(start)

	out := Outcome{
		Seq:        seq,
		Kind:       Classify(err),
		Numbers:    append([]int{}, numbers...),
		Indicators: indicators,
		Payload:    payload,
		Err:        err,
	}

	a.mu.Lock()
	if seq != a.seq {
		a.mu.Unlock()
		out.Kind = OutcomeSuperseded
		log.Debug("discarding superseded outcome", zap.Duration("elapsed", elapsed))
		a.recorder.ObserveSubmission(out.Kind.String(), elapsed)
		return out
	}
	a.cancel = nil
	a.state.Seq = seq
	a.state.Result = payload
	a.state.Err = err
	if err != nil {
		a.state.Status = StatusFailed
	} else {
		a.state.Status = StatusDisplaying
	}
	a.mu.Unlock()

	if err != nil {
		log.Warn("submission failed", zap.String("outcome", out.Kind.String()), zap.Error(err))
	} else {
		log.Info("submission completed", zap.Duration("elapsed", elapsed), zap.Int("bytes", len(payload)))
	}
	a.recorder.ObserveSubmission(out.Kind.String(), elapsed)
	if a.history != nil {
		a.history.Add(out.Entry(time.Now()))
	}
	return out
}

// SubmitSelection performs exactly one backend call for numbers and
// indicators, without touching any view state.
func SubmitSelection(ctx context.Context, client Submitter, numbers []int, indicators []string) (backend.Payload, error) {
	req := backend.Request{
		Dezenas:     append([]int{}, numbers...),
		Indicadores: append([]string{}, indicators...),
	}
	return client.TestIndicators(ctx, req)
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
