package githubapi

import (
	"testing"

	"chat-archive-bot/internal/domain"
)

func TestAppendMissingLinesSkipsExistingMarkers(t *testing.T) {
	content := "# Channel C1 — 2026-08-28\n- **10:00:00** `U1`: hi <!-- event:1.0001 -->\n"
	lines := []domain.ArchiveLine{
		{EventID: "1.0001", Text: "- **10:00:00** `U1`: hi <!-- event:1.0001 -->"},
		{EventID: "2.0001", Text: "- **10:01:00** `U2`: hello <!-- event:2.0001 -->"},
	}

	missing := appendMissingLines(content, lines)
	if len(missing) != 1 {
		t.Fatalf("ожидали одну новую строку, получили %d", len(missing))
	}
	if missing[0] != lines[1].Text {
		t.Fatalf("неожиданная строка: %q", missing[0])
	}
}

func TestAppendMissingLinesDeduplicatesWithinBatch(t *testing.T) {
	lines := []domain.ArchiveLine{
		{EventID: "1.0001", Text: "- a <!-- event:1.0001 -->"},
		{EventID: "1.0001", Text: "- a <!-- event:1.0001 -->"},
	}
	missing := appendMissingLines("", lines)
	if len(missing) != 1 {
		t.Fatalf("дубликат в одной пачке должен схлопнуться, получили %d", len(missing))
	}
}

func TestSplitRepository(t *testing.T) {
	owner, repo, err := splitRepository("acme/archive")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if owner != "acme" || repo != "archive" {
		t.Fatalf("неожиданный разбор: %s %s", owner, repo)
	}
	if _, _, err := splitRepository("acme"); err == nil {
		t.Fatal("ожидали ошибку для имени без владельца")
	}
}
