package report

import (
	"strings"
	"time"

	"chat-archive-bot/internal/domain"
)

// Categorize раскладывает открытые задачи по четырём категориям.
//
// Каждая задача попадает ровно в одну категорию, первый совпавший приоритет
// побеждает: blocked > ready-for-testing > in-progress > backlog. Задача с
// метками "blocked" и "ready-for-testing" отчитывается как заблокированная.
func Categorize(repoName string, issues []domain.Issue, now time.Time, ttl time.Duration) domain.IssueSnapshot {
	snapshot := domain.IssueSnapshot{
		RepoName:  repoName,
		Timestamp: now,
		ExpiresAt: now.Add(ttl),
	}

	for _, issue := range issues {
		ref := domain.IssueRef{Number: issue.Number, Title: issue.Title, URL: issue.URL}
		switch {
		case hasBlockedLabel(issue.Labels):
			snapshot.Blocked = append(snapshot.Blocked, ref)
		case hasReadyLabel(issue.Labels):
			snapshot.ReadyForTesting = append(snapshot.ReadyForTesting, ref)
		case hasInProgressLabel(issue.Labels):
			snapshot.InProgress = append(snapshot.InProgress, ref)
		default:
			snapshot.Backlog = append(snapshot.Backlog, ref)
		}
	}
	return snapshot
}

func hasBlockedLabel(labels []string) bool {
	for _, label := range labels {
		lower := strings.ToLower(label)
		if strings.Contains(lower, "blocked") && !strings.Contains(lower, "unblocked") {
			return true
		}
	}
	return false
}

func hasReadyLabel(labels []string) bool {
	for _, label := range labels {
		lower := strings.ToLower(label)
		if strings.Contains(lower, "ready") && strings.Contains(lower, "test") {
			return true
		}
	}
	return false
}

func hasInProgressLabel(labels []string) bool {
	for _, label := range labels {
		lower := strings.ToLower(label)
		if strings.Contains(lower, "in-progress") || strings.Contains(lower, "in progress") {
			return true
		}
	}
	return false
}
