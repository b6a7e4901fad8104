// Package compact folds a raw event log into the human readable action list
// shown when a macro is inspected.
package compact

import (
	"fmt"
	"sort"

	"github.com/offlinefirst/macrorec/pkg/events"
)

// Action labels.
const (
	LabelKeyClick     = "Key Click"
	LabelMouseClick   = "Mouse Click"
	LabelMouseDrag    = "Mouse Drag"
	LabelMouseScroll  = "Mouse Scroll"
	LabelKeyPress     = "Key Press"
	LabelKeyRelease   = "Key Release"
	LabelMousePress   = "Mouse Press"
	LabelMouseRelease = "Mouse Release"
)

// Action is one display row derived from one or more raw events.
type Action struct {
	Label    string
	Detail   string
	Duration float64
}

// DurationString formats the duration the way the action table shows it:
// drags and scrolls with two decimals, everything else with three.
func (a Action) DurationString() string {
	if a.Label == LabelMouseDrag || a.Label == LabelMouseScroll {
		return fmt.Sprintf("%.2fs", a.Duration)
	}
	return fmt.Sprintf("%.3fs", a.Duration)
}

// Compact walks the log with a single forward cursor. At each position the
// first matching rule wins: key click pair, mouse click pair, move run, scroll
// run, then a one-event fallback.
func Compact(log events.Log) []Action {
	actions := make([]Action, 0, len(log))
	i := 0
	for i < len(log) {
		ev := log[i]
		if i+1 < len(log) {
			next := log[i+1]
			if ev.Kind == events.KeyPress && next.Kind == events.KeyRelease && ev.Key == next.Key {
				actions = append(actions, Action{LabelKeyClick, ev.Key.Label(), next.Time - ev.Time})
				i += 2
				continue
			}
			if ev.Kind == events.MouseClick && ev.Pressed &&
				next.Kind == events.MouseClick && !next.Pressed && ev.Button == next.Button {
				actions = append(actions, Action{LabelMouseClick, pointDetail(ev), next.Time - ev.Time})
				i += 2
				continue
			}
		}

		switch ev.Kind {
		case events.MouseMove:
			j := i + 1
			for j < len(log) && log[j].Kind == events.MouseMove {
				j++
			}
			last := log[j-1]
			actions = append(actions, Action{
				Label:    LabelMouseDrag,
				Detail:   fmt.Sprintf("From [%d, %d] to [%d, %d]", ev.X, ev.Y, last.X, last.Y),
				Duration: last.Time - ev.Time,
			})
			i = j
		case events.MouseScroll:
			dx, dy := ev.DX, ev.DY
			sx, sy := sign(ev.DX), sign(ev.DY)
			j := i + 1
			for j < len(log) && log[j].Kind == events.MouseScroll &&
				sign(log[j].DX) == sx && sign(log[j].DY) == sy {
				dx += log[j].DX
				dy += log[j].DY
				j++
			}
			actions = append(actions, Action{
				Label:    LabelMouseScroll,
				Detail:   fmt.Sprintf("dx=%d, dy=%d", dx, dy),
				Duration: log[j-1].Time - ev.Time,
			})
			i = j
		default:
			actions = append(actions, fallback(log, i))
			i++
		}
	}
	return actions
}

func fallback(log events.Log, i int) Action {
	ev := log[i]
	var gap float64
	if i > 0 {
		gap = ev.Time - log[i-1].Time
	}
	a := Action{Duration: gap}
	switch ev.Kind {
	case events.KeyPress:
		a.Label, a.Detail = LabelKeyPress, ev.Key.Label()
	case events.KeyRelease:
		a.Label, a.Detail = LabelKeyRelease, ev.Key.Label()
	case events.MouseClick:
		a.Label = LabelMouseRelease
		if ev.Pressed {
			a.Label = LabelMousePress
		}
		a.Detail = pointDetail(ev)
	default:
		a.Label, a.Detail = ev.Kind.String(), ""
	}
	return a
}

func pointDetail(ev events.Event) string {
	return fmt.Sprintf("(%d, %d) %s", ev.X, ev.Y, ev.Button)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// LabelCount pairs a label with how many actions carry it.
type LabelCount struct {
	Label string
	Count int
}

// Summarize counts actions per label, most frequent first, ties by label.
func Summarize(actions []Action) []LabelCount {
	counts := make(map[string]int)
	for _, a := range actions {
		counts[a.Label]++
	}
	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
