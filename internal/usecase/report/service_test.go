package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chat-archive-bot/internal/domain"
)

type stubTracker struct {
	issues []domain.Issue
	err    error
}

func (t *stubTracker) ListOpenIssues(context.Context, string, string) ([]domain.Issue, error) {
	return t.issues, t.err
}

type memSnapshots struct {
	rows []domain.IssueSnapshot
}

func (m *memSnapshots) GetLatest(_ context.Context, repoName string) (domain.IssueSnapshot, error) {
	var latest *domain.IssueSnapshot
	for i := range m.rows {
		if m.rows[i].RepoName != repoName {
			continue
		}
		if latest == nil || m.rows[i].Timestamp.After(latest.Timestamp) {
			latest = &m.rows[i]
		}
	}
	if latest == nil {
		return domain.IssueSnapshot{}, domain.ErrSnapshotNotFound
	}
	return *latest, nil
}

func (m *memSnapshots) Replace(_ context.Context, snapshot domain.IssueSnapshot) error {
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.RepoName != snapshot.RepoName {
			kept = append(kept, row)
		}
	}
	m.rows = append(kept, snapshot)
	return nil
}

type stubNotifier struct {
	messages []string
	err      error
}

func (n *stubNotifier) PostMessage(_ context.Context, _ string, text string) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	n.messages = append(n.messages, text)
	return "1727787000.000100", nil
}

func newReportService(tracker domain.IssueTracker, snapshots domain.SnapshotRepo, notifier domain.Notifier) *Service {
	return NewService(tracker, snapshots, notifier, Config{
		Owner:       "acme",
		Repo:        "app",
		ChannelID:   "C1",
		SnapshotTTL: time.Hour,
		Location:    time.UTC,
	}, zerolog.Nop())
}

func TestRunKeepsSingleSnapshotPerRepo(t *testing.T) {
	tracker := &stubTracker{issues: []domain.Issue{
		{Number: 1, Labels: []string{"ready-for-testing"}},
		{Number: 2, Labels: []string{"in-progress"}},
	}}
	snapshots := &memSnapshots{}
	notifier := &stubNotifier{}
	service := newReportService(tracker, snapshots, notifier)

	ctx := context.Background()
	if err := service.Run(ctx); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	firstTS := snapshots.rows[0].Timestamp

	time.Sleep(10 * time.Millisecond)
	if err := service.Run(ctx); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(snapshots.rows) != 1 {
		t.Fatalf("в покое должен храниться один снапшот, получили %d", len(snapshots.rows))
	}
	if !snapshots.rows[0].Timestamp.After(firstTS) {
		t.Fatal("после второго прогона снапшот должен быть свежее")
	}
	if len(notifier.messages) != 2 {
		t.Fatalf("ожидали 2 отчёта, получили %d", len(notifier.messages))
	}
}

func TestRunFirstReportMarksEverythingNew(t *testing.T) {
	tracker := &stubTracker{issues: []domain.Issue{
		{Number: 1, Labels: []string{"ready-for-testing"}},
		{Number: 2, Labels: []string{"ready for testing"}},
		{Number: 3, Labels: []string{"in-progress"}},
	}}
	snapshots := &memSnapshots{}
	notifier := &stubNotifier{}
	service := newReportService(tracker, snapshots, notifier)

	if err := service.Run(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	mustContain(t, notifier.messages[0], "*Ready for Testing:* 2 issues (+2)")
	mustContain(t, notifier.messages[0], "*In Progress:* 1 issues (+1)")
}

func TestRunNotifyFailureKeepsPreviousSnapshot(t *testing.T) {
	tracker := &stubTracker{issues: []domain.Issue{{Number: 1, Labels: []string{"blocked"}}}}
	snapshots := &memSnapshots{}
	service := newReportService(tracker, snapshots, &stubNotifier{err: errors.New("чат недоступен")})

	if err := service.Run(context.Background()); err == nil {
		t.Fatal("ожидали ошибку отправки")
	}
	if len(snapshots.rows) != 0 {
		t.Fatalf("неотправленный отчёт не должен менять снапшот: %+v", snapshots.rows)
	}
}

func TestRunTrackerFailureIsFatal(t *testing.T) {
	tracker := &stubTracker{err: errors.New("api недоступен")}
	snapshots := &memSnapshots{rows: []domain.IssueSnapshot{{RepoName: "acme/app", Timestamp: time.Now()}}}
	service := newReportService(tracker, snapshots, &stubNotifier{})

	if err := service.Run(context.Background()); err == nil {
		t.Fatal("ожидали ошибку выгрузки задач")
	}
	if len(snapshots.rows) != 1 {
		t.Fatal("при фатальной ошибке снапшот остаётся нетронутым")
	}
}
