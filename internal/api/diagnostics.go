package api

import (
	"fmt"

	"github.com/obsidianstack/contexthub/internal/store"
)

// DiagnosticHint is one human-readable insight about the context store's
// health. The UI displays these as chips on the dashboard; clicking one shows
// Detail — written like an assistant explaining the problem in plain English.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint (e.g. stale %).
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives human-readable diagnostic hints from the store
// statistics. Diagnostics are ordered: critical first, then warnings, then info.
func computeDiagnostics(s store.Stats) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── Empty store ──────────────────────────────────────────────────────────
	if s.Entries == 0 {
		if s.Opens == 0 {
			hints = append(hints, DiagnosticHint{
				Key:   "no_traffic",
				Level: "info",
				Title: "No contexts yet",
				Detail: "No context has been opened since the server started. " +
					"As soon as a client calls open_context a context is created and " +
					"statistics start accumulating. No action needed.",
			})
		} else {
			hints = append(hints, DiagnosticHint{
				Key:   "store_drained",
				Level: "info",
				Title: "Store drained",
				Detail: "Contexts were opened earlier but every entry has since been " +
					"evicted by the sweep. If clients expected their contexts to still " +
					"be there, the TTLs they pass to open_context are probably shorter " +
					"than the time between their calls.",
			})
		}
		return hints
	}

	stalePct := float64(s.Stale) / float64(s.Entries) * 100

	// ── Stale contexts ───────────────────────────────────────────────────────
	if s.Stale > 0 {
		v := stalePct
		var level, title, detail string

		switch {
		case stalePct >= 40:
			level = "critical"
			title = fmt.Sprintf("%.0f%% contexts stale", stalePct)
			detail = fmt.Sprintf(
				"%d of %d contexts have outlived their TTL and will be reset to empty "+
					"data on their next open. At this rate most clients re-opening a context "+
					"will find their accumulated state gone. Common causes: TTLs far shorter "+
					"than the real session length, or clients that stopped calling open_context "+
					"while the sweep is disabled. Raise the TTL clients pass, or shorten the "+
					"sweep interval so dead entries are evicted instead of lingering.",
				s.Stale, s.Entries,
			)
		case stalePct >= 15:
			level = "warning"
			title = fmt.Sprintf("%.0f%% contexts stale", stalePct)
			detail = fmt.Sprintf(
				"%d of %d contexts are past their TTL. A stale context is not gone — "+
					"its data survives until the sweep evicts it or an open resets it — "+
					"but clients re-opening one will start from empty data. "+
					"Monitor whether this share is growing.",
				s.Stale, s.Entries,
			)
		default:
			level = "info"
			title = fmt.Sprintf("%.1f%% minor staleness", stalePct)
			detail = fmt.Sprintf(
				"A small number of contexts (%d) are past their TTL. "+
					"This is normal churn for short-lived sessions; the sweep will "+
					"collect them.",
				s.Stale,
			)
		}
		hints = append(hints, DiagnosticHint{Key: "stale_contexts", Level: level, Title: title, Detail: detail, Value: &v})
	}

	// ── Frequent TTL resets ──────────────────────────────────────────────────
	if s.Opens > 0 && s.Resets > 0 {
		resetPct := float64(s.Resets) / float64(s.Opens) * 100
		if resetPct >= 10 {
			v := resetPct
			hints = append(hints, DiagnosticHint{
				Key:   "frequent_resets",
				Level: "warning",
				Title: fmt.Sprintf("%.0f%% opens hit expired data", resetPct),
				Detail: fmt.Sprintf(
					"%.0f%% of open_context calls found their context expired and got a "+
						"fresh empty one back. Each of those clients silently lost whatever "+
						"data it had accumulated. If that is not intended, the TTL passed to "+
						"open_context is too short for the gap between calls — a context's "+
						"TTL is only renewed when it is opened after expiry, never by updates.",
					resetPct,
				),
				Value: &v,
			})
		}
	}

	// ── Updates to unknown keys ──────────────────────────────────────────────
	if s.Inserts > 0 {
		v := float64(s.Inserts)
		hints = append(hints, DiagnosticHint{
			Key:   "blind_inserts",
			Level: "warning",
			Title: "Updates to unknown keys",
			Detail: fmt.Sprintf(
				"%d update_context calls named a key with no matching entry, so the "+
					"store inserted the data as an already-expired context. That usually "+
					"means the original context expired and was swept between the client's "+
					"open and its update, or the client is passing a stale key from an "+
					"earlier run. The inserted data is reachable by key until the next "+
					"sweep, but the next open will reset it.",
				s.Inserts,
			),
			Value: &v,
		})
	}

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		score := 100 - stalePct
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"All %d contexts are live and every update so far addressed a known key. "+
					"Keep an eye on the open rate trend — a sudden spike in creates with few "+
					"fetches can indicate clients hashing their lookup keys inconsistently "+
					"and opening fresh contexts instead of finding their old ones.",
				s.Entries,
			),
			Value: &score,
		})
	}

	return hints
}
