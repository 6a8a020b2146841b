package report

import (
	"fmt"
	"strings"
	"time"

	"chat-archive-bot/internal/domain"
)

// FormatReport формирует текст отчёта для отправки в чат.
func FormatReport(repoName string, delta domain.SnapshotDelta, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	var lines []string
	lines = append(lines, fmt.Sprintf("📊 *%s* - Issue Status Report", repoName))
	lines = append(lines, fmt.Sprintf("_%s_", local.Format("03:04 PM MST")))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("✅ *Ready for Testing:* %d issues (%s)", delta.ReadyForTesting.Count, FormatDelta(delta.ReadyForTesting.Delta)))
	lines = append(lines, issueBullets(delta.ReadyForTesting.New, "new")...)
	lines = append(lines, issueBullets(delta.ReadyForTesting.Moved, "moved")...)
	lines = append(lines, fmt.Sprintf("🔨 *In Progress:* %d issues (%s)", delta.InProgress.Count, FormatDelta(delta.InProgress.Delta)))
	lines = append(lines, fmt.Sprintf("🚧 *Blocked:* %d issues (%s)", delta.Blocked.Count, FormatDelta(delta.Blocked.Delta)))
	lines = append(lines, fmt.Sprintf("📋 *Backlog:* %d issues (%s)", delta.Backlog.Count, FormatDelta(delta.Backlog.Delta)))

	return strings.Join(lines, "\n")
}

// FormatDelta выводит дельту со знаком или "no change".
func FormatDelta(delta int) string {
	switch {
	case delta > 0:
		return fmt.Sprintf("+%d", delta)
	case delta < 0:
		return fmt.Sprintf("%d", delta)
	default:
		return "no change"
	}
}

func issueBullets(refs []domain.IssueRef, tag string) []string {
	var out []string
	for _, ref := range refs {
		out = append(out, fmt.Sprintf("    • <%s|#%d %s> (%s)", ref.URL, ref.Number, ref.Title, tag))
	}
	return out
}
