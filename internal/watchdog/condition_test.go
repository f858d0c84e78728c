package watchdog

import "testing"

func TestEvalCondition(t *testing.T) {
	fields := map[string]float64{
		"entries":   100,
		"live":      40,
		"stale":     60,
		"stale_pct": 60,
		"open_rate": 25.5,
	}

	cases := []struct {
		cond      string
		wantFires bool
		wantValue float64
	}{
		{"stale_pct > 50", true, 60},
		{"stale_pct > 60", false, 60},
		{"stale_pct >= 60", true, 60},
		{"entries < 200", true, 100},
		{"entries <= 99", false, 100},
		{"live == 40", true, 40},
		{"live != 40", false, 40},
		{"live != 41", true, 40},
		{"open_rate > 25", true, 25.5},

		// Unparseable or unknown inputs never fire.
		{"", false, 0},
		{"stale_pct >", false, 0},
		{"stale_pct > fifty", false, 0},
		{"unknown_field > 1", false, 0},
		{"stale_pct ~ 50", false, 60},
	}

	for _, tc := range cases {
		fires, value := evalCondition(tc.cond, fields)
		if fires != tc.wantFires || value != tc.wantValue {
			t.Errorf("evalCondition(%q): got (%v, %v), want (%v, %v)",
				tc.cond, fires, value, tc.wantFires, tc.wantValue)
		}
	}
}

func TestSeverityHelpers(t *testing.T) {
	if got := severityLabel("critical"); got != "[CRITICAL]" {
		t.Errorf("severityLabel(critical): got %q", got)
	}
	if got := severityLabel("info"); got != "[INFO]" {
		t.Errorf("severityLabel(info): got %q", got)
	}
	if got := severityColor("warning"); got != "FFAB40" {
		t.Errorf("severityColor(warning): got %q", got)
	}
}
