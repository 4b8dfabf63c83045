package selection

import (
	"errors"
	"time"

	"indicadores/internal/backend"
	"indicadores/internal/history"
)

// OutcomeKind tags how a submission ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRequestFailed
	OutcomeDecodeFailed
	// OutcomeSuperseded marks a submission overtaken by a newer one. It never
	// reaches the view state.
	OutcomeSuperseded
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRequestFailed:
		return "request_failed"
	case OutcomeDecodeFailed:
		return "decode_failed"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Outcome is the result of one submission.
type Outcome struct {
	Seq        uint64
	Kind       OutcomeKind
	Numbers    []int
	Indicators []string
	Payload    backend.Payload
	Err        error
}

// OK reports a successful submission.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// Entry converts o into a history record stamped with at.
func (o Outcome) Entry(at time.Time) history.Entry {
	e := history.Entry{
		Seq:        o.Seq,
		Numbers:    o.Numbers,
		Indicators: o.Indicators,
		Outcome:    o.Kind.String(),
		Payload:    o.Payload,
		At:         at,
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

// Classify maps a submission error to its outcome kind.
func Classify(err error) OutcomeKind {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, backend.ErrDecodeFailed):
		return OutcomeDecodeFailed
	default:
		return OutcomeRequestFailed
	}
}
