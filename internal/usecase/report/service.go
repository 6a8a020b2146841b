package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chat-archive-bot/internal/domain"
	"chat-archive-bot/internal/infra/metrics"
)

// Config описывает параметры отчёта по задачам.
type Config struct {
	Owner       string
	Repo        string
	ChannelID   string
	SnapshotTTL time.Duration
	Location    *time.Location
}

// Service реализует плановый прогон отчёта: выгрузка задач, категоризация,
// дельта с прошлым снапшотом, отправка отчёта и замена снапшота.
type Service struct {
	tracker   domain.IssueTracker
	snapshots domain.SnapshotRepo
	notifier  domain.Notifier
	cfg       Config
	log       zerolog.Logger
}

// NewService создаёт сервис отчёта.
func NewService(tracker domain.IssueTracker, snapshots domain.SnapshotRepo, notifier domain.Notifier, cfg Config, log zerolog.Logger) *Service {
	return &Service{tracker: tracker, snapshots: snapshots, notifier: notifier, cfg: cfg, log: log}
}

// Run выполняет один прогон. Любая фатальная ошибка до отправки отчёта
// оставляет прежний снапшот нетронутым: он остаётся базой для следующей
// попытки. Снапшот заменяется только после успешной отправки — хранить
// снапшот неотправленного отчёта бессмысленно.
func (s *Service) Run(ctx context.Context) error {
	start := time.Now()
	repoName := s.cfg.Owner + "/" + s.cfg.Repo

	err := s.run(ctx, repoName, start)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.ReportRunsTotal.WithLabelValues(outcome).Inc()
	metrics.ReportRunSeconds.Observe(time.Since(start).Seconds())
	return err
}

func (s *Service) run(ctx context.Context, repoName string, now time.Time) error {
	issues, err := s.tracker.ListOpenIssues(ctx, s.cfg.Owner, s.cfg.Repo)
	if err != nil {
		return fmt.Errorf("выгрузка задач: %w", err)
	}

	current := Categorize(repoName, issues, now.UTC(), s.cfg.SnapshotTTL)

	var previous *domain.IssueSnapshot
	prev, err := s.snapshots.GetLatest(ctx, repoName)
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		s.log.Info().Str("repo", repoName).Msg("reporter: прежнего снапшота нет, все задачи новые")
	case err != nil:
		return fmt.Errorf("чтение прежнего снапшота: %w", err)
	default:
		previous = &prev
	}

	delta := ComputeDelta(current, previous)
	text := FormatReport(repoName, delta, now, s.cfg.Location)

	if _, err := s.notifier.PostMessage(ctx, s.cfg.ChannelID, text); err != nil {
		return fmt.Errorf("отправка отчёта: %w", err)
	}

	if err := s.snapshots.Replace(ctx, current); err != nil {
		// Отчёт уже ушёл; следующий прогон посчитает дельту от устаревшей базы.
		return fmt.Errorf("замена снапшота: %w", err)
	}

	s.log.Info().
		Str("repo", repoName).
		Int("total", current.TotalCount()).
		Int("ready", current.ReadyCount()).
		Int("in_progress", current.InProgressCount()).
		Int("blocked", current.BlockedCount()).
		Int("backlog", current.BacklogCount()).
		Dur("took", time.Since(now)).
		Msg("reporter: прогон завершён")
	return nil
}
