package generator

import "time"

// RenderState is what the result area shows.
type RenderState int

const (
	RenderEmpty RenderState = iota
	RenderLoading
	RenderResult
)

// String implements fmt.Stringer.
func (r RenderState) String() string {
	switch r {
	case RenderLoading:
		return "loading"
	case RenderResult:
		return "result"
	default:
		return "empty"
	}
}

// Select maps state to the result area view.
func Select(s State) RenderState {
	switch {
	case s.Loading:
		return RenderLoading
	case len(s.Results) > 0:
		return RenderResult
	default:
		return RenderEmpty
	}
}

// ButtonState describes the submit action.
type ButtonState struct {
	Disabled bool
	LabelKey string
	Seconds  int
}

// Button derives the submit action label and enablement at now.
func Button(s State, now time.Time) ButtonState {
	switch {
	case s.Cooling(now):
		return ButtonState{Disabled: true, LabelKey: "form.submit.wait", Seconds: s.RemainingSeconds(now)}
	case s.Loading:
		return ButtonState{Disabled: true, LabelKey: "form.submit.generating"}
	default:
		return ButtonState{LabelKey: "form.submit.generate"}
	}
}
