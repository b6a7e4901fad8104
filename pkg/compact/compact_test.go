package compact

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/offlinefirst/macrorec/pkg/events"
	"github.com/offlinefirst/macrorec/pkg/keys"
)

func TestKeyClickPair(t *testing.T) {
	got := Compact(events.Log{
		events.KeyDown(1.00, keys.Char('a')),
		events.KeyUp(1.08, keys.Char('a')),
	})
	if len(got) != 1 || got[0].Label != LabelKeyClick || got[0].Detail != "a" {
		t.Fatalf("unexpected actions %+v", got)
	}
	if got[0].DurationString() != "0.080s" {
		t.Fatalf("unexpected duration %s", got[0].DurationString())
	}
}

func TestMouseMovesCollapseIntoDrag(t *testing.T) {
	for n := 1; n <= 5; n++ {
		log := make(events.Log, n)
		for i := range log {
			log[i] = events.Move(float64(i)*0.1, i*10, i*20)
		}
		got := Compact(log)
		last := log[n-1]
		want := []Action{{
			Label:    LabelMouseDrag,
			Detail:   fmt.Sprintf("From [0, 0] to [%d, %d]", last.X, last.Y),
			Duration: last.Time,
		}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("n=%d: expected %+v, got %+v", n, want, got)
		}
	}
}

func TestDragDurationFormat(t *testing.T) {
	got := Compact(events.Log{events.Move(0, 0, 0), events.Move(0.2, 20, 20)})
	if len(got) != 1 || got[0].DurationString() != "0.20s" {
		t.Fatalf("unexpected drag %+v", got)
	}
	single := Compact(events.Log{events.Move(3, 7, 8)})
	if len(single) != 1 || single[0].Detail != "From [7, 8] to [7, 8]" || single[0].DurationString() != "0.00s" {
		t.Fatalf("unexpected single-move drag %+v", single)
	}
}

func TestScrollRunsSplitOnDirectionChange(t *testing.T) {
	cases := map[string]struct {
		log  events.Log
		want []Action
	}{
		"horizontal": {
			log: events.Log{
				events.Scroll(0, 5, 5, 1, 0),
				events.Scroll(0.25, 5, 5, 2, 0),
				events.Scroll(0.5, 5, 5, -1, 0),
			},
			want: []Action{
				{LabelMouseScroll, "dx=3, dy=0", 0.25},
				{LabelMouseScroll, "dx=-1, dy=0", 0},
			},
		},
		"vertical": {
			log: events.Log{
				events.Scroll(0, 5, 5, 0, 1),
				events.Scroll(0.5, 5, 5, 0, 1),
				events.Scroll(0.75, 5, 5, 0, -1),
			},
			want: []Action{
				{LabelMouseScroll, "dx=0, dy=2", 0.5},
				{LabelMouseScroll, "dx=0, dy=-1", 0},
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := Compact(tc.log)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestMouseClickPair(t *testing.T) {
	got := Compact(events.Log{
		events.Click(2.0, 100, 200, events.ButtonLeft, true),
		events.Click(2.1, 100, 200, events.ButtonLeft, false),
	})
	if len(got) != 1 || got[0].Label != LabelMouseClick || got[0].Detail != "(100, 200) Button.left" {
		t.Fatalf("unexpected actions %+v", got)
	}
}

func TestFallbackLabelsAndGaps(t *testing.T) {
	got := Compact(events.Log{
		events.KeyDown(1.0, keys.Named(keys.Shift)),
		events.KeyDown(1.5, keys.Char('a')),
		events.Click(2.0, 1, 2, events.ButtonRight, true),
		events.Click(2.25, 1, 2, events.ButtonLeft, false),
		events.KeyUp(3.0, keys.Named(keys.Shift)),
	})
	labels := []string{LabelKeyPress, LabelKeyPress, LabelMousePress, LabelMouseRelease, LabelKeyRelease}
	if len(got) != len(labels) {
		t.Fatalf("expected %d actions, got %+v", len(labels), got)
	}
	for i, label := range labels {
		if got[i].Label != label {
			t.Fatalf("action %d: expected %s, got %s", i, label, got[i].Label)
		}
	}
	if got[0].Duration != 0 {
		t.Fatalf("first fallback must have zero duration, got %v", got[0].Duration)
	}
	if got[1].Duration != 0.5 || got[0].Detail != "Key.shift" {
		t.Fatalf("unexpected fallback %+v / %+v", got[0], got[1])
	}
}

func TestEmptyLog(t *testing.T) {
	if got := Compact(nil); len(got) != 0 {
		t.Fatalf("expected no actions, got %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]Action{
		{Label: LabelKeyClick}, {Label: LabelMouseDrag}, {Label: LabelKeyClick},
	})
	want := []LabelCount{{LabelKeyClick, 2}, {LabelMouseDrag, 1}}
	if !reflect.DeepEqual(summary, want) {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}
}

func genLog() gopter.Gen {
	ev := gopter.CombineGens(
		gen.IntRange(0, 4),
		gen.IntRange(-3, 3),
		gen.IntRange(-3, 3),
		gen.Bool(),
		gen.OneConstOf('a', 'b'),
	).Map(func(v []interface{}) events.Event {
		dx, dy := v[1].(int), v[2].(int)
		k := keys.Char(v[4].(rune))
		switch v[0].(int) {
		case 0:
			return events.KeyDown(0, k)
		case 1:
			return events.KeyUp(0, k)
		case 2:
			return events.Move(0, dx*10, dy*10)
		case 3:
			return events.Click(0, 0, 0, events.ButtonLeft, v[3].(bool))
		default:
			return events.Scroll(0, 0, 0, dx, dy)
		}
	})
	return gen.SliceOf(ev).Map(func(list []events.Event) events.Log {
		log := make(events.Log, len(list))
		for i, e := range list {
			e.Time = float64(i) * 0.05
			log[i] = e
		}
		return log
	})
}

func TestCompactProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("deterministic", prop.ForAll(
		func(log events.Log) bool {
			return reflect.DeepEqual(Compact(log), Compact(log))
		},
		genLog(),
	))

	properties.Property("never more actions than events, non-empty for non-empty input", prop.ForAll(
		func(log events.Log) bool {
			n := len(Compact(log))
			if len(log) == 0 {
				return n == 0
			}
			return n >= 1 && n <= len(log)
		},
		genLog(),
	))

	properties.Property("no two consecutive drags", prop.ForAll(
		func(log events.Log) bool {
			actions := Compact(log)
			for i := 1; i < len(actions); i++ {
				if actions[i].Label == LabelMouseDrag && actions[i-1].Label == LabelMouseDrag {
					return false
				}
			}
			return true
		},
		genLog(),
	))

	properties.Property("durations are never negative for ordered logs", prop.ForAll(
		func(log events.Log) bool {
			for _, a := range Compact(log) {
				if a.Duration < 0 {
					return false
				}
			}
			return true
		},
		genLog(),
	))

	properties.TestingRun(t)
}
