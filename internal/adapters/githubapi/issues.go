package githubapi

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v66/github"

	"chat-archive-bot/internal/domain"
	"chat-archive-bot/internal/infra/metrics"
)

const issuesPerPage = 100

// Tracker реализует domain.IssueTracker через GitHub REST API.
type Tracker struct {
	client *github.Client
}

var _ domain.IssueTracker = (*Tracker)(nil)

// NewTracker создаёт трекер задач.
func NewTracker(client *github.Client) *Tracker {
	return &Tracker{client: client}
}

// ListOpenIssues возвращает открытые задачи репозитория.
// Pull request'ы, которые GitHub подмешивает в issues API, отбрасываются.
func (t *Tracker) ListOpenIssues(ctx context.Context, owner, repo string) ([]domain.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: issuesPerPage},
	}
	start := time.Now()
	issues, _, err := t.client.Issues.ListByRepo(ctx, owner, repo, opts)
	metrics.ObserveNetworkRequest("github", "issues_list", owner+"/"+repo, start, err)
	if err != nil {
		return nil, fmt.Errorf("список задач %s/%s: %w", owner, repo, err)
	}

	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		labels := make([]string, 0, len(issue.Labels))
		for _, label := range issue.Labels {
			labels = append(labels, label.GetName())
		}
		out = append(out, domain.Issue{
			Number: issue.GetNumber(),
			Title:  issue.GetTitle(),
			URL:    issue.GetHTMLURL(),
			Labels: labels,
		})
	}
	return out, nil
}
