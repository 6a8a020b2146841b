package report

import (
	"testing"
	"time"

	"chat-archive-bot/internal/domain"
)

func TestCategorizePrecedence(t *testing.T) {
	issues := []domain.Issue{
		{Number: 1, Labels: []string{"blocked", "ready-for-testing"}},
		{Number: 2, Labels: []string{"Ready-For-Testing"}},
		{Number: 3, Labels: []string{"status:in-progress"}},
		{Number: 4, Labels: []string{"documentation"}},
		{Number: 5, Labels: []string{"unblocked"}},
		{Number: 6, Labels: []string{"In Progress"}},
		{Number: 7, Labels: nil},
	}

	snapshot := Categorize("acme/app", issues, time.Now(), time.Hour)

	if len(snapshot.Blocked) != 1 || snapshot.Blocked[0].Number != 1 {
		t.Fatalf("blocked должен победить ready: %+v", snapshot.Blocked)
	}
	if len(snapshot.ReadyForTesting) != 1 || snapshot.ReadyForTesting[0].Number != 2 {
		t.Fatalf("неожиданный ready: %+v", snapshot.ReadyForTesting)
	}
	if len(snapshot.InProgress) != 2 {
		t.Fatalf("ожидали 2 in-progress, получили %+v", snapshot.InProgress)
	}
	if len(snapshot.Backlog) != 3 {
		t.Fatalf("ожидали 3 backlog (включая unblocked), получили %+v", snapshot.Backlog)
	}
}

func TestCategorizeIsTotal(t *testing.T) {
	issues := []domain.Issue{
		{Number: 10, Labels: []string{"bug", "blocked"}},
		{Number: 11, Labels: []string{"ready for testing"}},
		{Number: 12, Labels: []string{"in-progress"}},
		{Number: 13, Labels: []string{"enhancement"}},
		{Number: 14},
	}

	snapshot := Categorize("acme/app", issues, time.Now(), time.Hour)

	if snapshot.TotalCount() != len(issues) {
		t.Fatalf("категории не покрывают все задачи: %d != %d", snapshot.TotalCount(), len(issues))
	}
	seen := make(map[int]int)
	for _, refs := range [][]domain.IssueRef{snapshot.ReadyForTesting, snapshot.InProgress, snapshot.Blocked, snapshot.Backlog} {
		for _, ref := range refs {
			seen[ref.Number]++
		}
	}
	for number, count := range seen {
		if count != 1 {
			t.Fatalf("задача #%d попала в %d категорий", number, count)
		}
	}
}
