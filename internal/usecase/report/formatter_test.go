package report

import (
	"strings"
	"testing"
	"time"

	"chat-archive-bot/internal/domain"
)

func TestFormatDelta(t *testing.T) {
	cases := map[int]string{3: "+3", -2: "-2", 0: "no change"}
	for delta, expected := range cases {
		if got := FormatDelta(delta); got != expected {
			t.Fatalf("дельта %d: ожидали %q, получили %q", delta, expected, got)
		}
	}
}

func TestFormatReportSections(t *testing.T) {
	delta := domain.SnapshotDelta{
		ReadyForTesting: domain.CategoryDelta{
			Count: 2,
			Delta: 1,
			New:   []domain.IssueRef{{Number: 7, Title: "Login flow", URL: "https://example.com/7"}},
			Moved: []domain.IssueRef{{Number: 8, Title: "Search", URL: "https://example.com/8"}},
		},
		InProgress: domain.CategoryDelta{Count: 3, Delta: 0},
		Blocked:    domain.CategoryDelta{Count: 1, Delta: -1},
		Backlog:    domain.CategoryDelta{Count: 5, Delta: 2},
	}

	now := time.Date(2026, 8, 28, 15, 4, 0, 0, time.UTC)
	text := FormatReport("acme/app", delta, now, time.UTC)

	mustContain(t, text, "📊 *acme/app* - Issue Status Report")
	mustContain(t, text, "✅ *Ready for Testing:* 2 issues (+1)")
	mustContain(t, text, "<https://example.com/7|#7 Login flow> (new)")
	mustContain(t, text, "<https://example.com/8|#8 Search> (moved)")
	mustContain(t, text, "🔨 *In Progress:* 3 issues (no change)")
	mustContain(t, text, "🚧 *Blocked:* 1 issues (-1)")
	mustContain(t, text, "📋 *Backlog:* 5 issues (+2)")
	mustContain(t, text, "_03:04 PM UTC_")
}

func mustContain(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("ожидали найти подстроку %q в %q", substr, s)
	}
}
