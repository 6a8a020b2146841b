package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-archive-bot/internal/domain"
	"chat-archive-bot/internal/infra/metrics"
)

// Postgres реализует репозитории маршрутов и снапшотов на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.RouteResolver = (*Postgres)(nil)
var _ domain.SnapshotRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// Resolve реализует domain.RouteResolver.
// Таблица маршрутов заполняется внешним приложением, здесь только чтение.
func (p *Postgres) Resolve(ctx context.Context, channelID string) (domain.Route, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var route domain.Route
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT channel_id, repository, branch, path_template
FROM channel_routes
WHERE channel_id = $1
`, channelID).Scan(&route.ChannelID, &route.Repository, &route.Branch, &route.PathTemplate)
	metrics.ObserveNetworkRequest("postgres", "route_resolve", "channel_routes", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Route{}, domain.ErrRouteNotFound
	}
	if err != nil {
		return domain.Route{}, fmt.Errorf("чтение маршрута %s: %w", channelID, err)
	}
	return route, nil
}

type snapshotCategories struct {
	Ready      []domain.IssueRef `json:"ready_for_testing"`
	InProgress []domain.IssueRef `json:"in_progress"`
	Blocked    []domain.IssueRef `json:"blocked"`
	Backlog    []domain.IssueRef `json:"backlog"`
}

// GetLatest реализует domain.SnapshotRepo.
func (p *Postgres) GetLatest(ctx context.Context, repoName string) (domain.IssueSnapshot, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		payload   []byte
		createdAt time.Time
		expiresAt time.Time
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT categories, created_at, expires_at
FROM issue_snapshots
WHERE repo_name = $1 AND expires_at > now()
ORDER BY created_at DESC
LIMIT 1
`, repoName).Scan(&payload, &createdAt, &expiresAt)
	metrics.ObserveNetworkRequest("postgres", "snapshot_get", "issue_snapshots", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IssueSnapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.IssueSnapshot{}, fmt.Errorf("чтение снапшота %s: %w", repoName, err)
	}

	var cats snapshotCategories
	if err := json.Unmarshal(payload, &cats); err != nil {
		return domain.IssueSnapshot{}, fmt.Errorf("десериализация снапшота %s: %w", repoName, err)
	}
	return domain.IssueSnapshot{
		RepoName:        repoName,
		ReadyForTesting: cats.Ready,
		InProgress:      cats.InProgress,
		Blocked:         cats.Blocked,
		Backlog:         cats.Backlog,
		Timestamp:       createdAt,
		ExpiresAt:       expiresAt,
	}, nil
}

// Replace удаляет прежние снапшоты репозитория и записывает ровно один новый.
// Обе операции идут в одной транзакции: в состоянии покоя хранится одна строка.
func (p *Postgres) Replace(ctx context.Context, snapshot domain.IssueSnapshot) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	payload, err := json.Marshal(snapshotCategories{
		Ready:      snapshot.ReadyForTesting,
		InProgress: snapshot.InProgress,
		Blocked:    snapshot.Blocked,
		Backlog:    snapshot.Backlog,
	})
	if err != nil {
		return fmt.Errorf("сериализация снапшота: %w", err)
	}

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "issue_snapshots", start, err)
	if err != nil {
		return fmt.Errorf("открытие транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	start = time.Now()
	_, err = tx.Exec(ctx, `DELETE FROM issue_snapshots WHERE repo_name = $1`, snapshot.RepoName)
	metrics.ObserveNetworkRequest("postgres", "snapshot_delete", "issue_snapshots", start, err)
	if err != nil {
		return fmt.Errorf("удаление прежних снапшотов: %w", err)
	}

	start = time.Now()
	_, err = tx.Exec(ctx, `
INSERT INTO issue_snapshots (repo_name, categories, ready_count, in_progress_count, blocked_count, backlog_count, total_count, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, snapshot.RepoName, payload,
		snapshot.ReadyCount(), snapshot.InProgressCount(), snapshot.BlockedCount(), snapshot.BacklogCount(),
		snapshot.TotalCount(), snapshot.Timestamp, snapshot.ExpiresAt)
	metrics.ObserveNetworkRequest("postgres", "snapshot_insert", "issue_snapshots", start, err)
	if err != nil {
		return fmt.Errorf("запись снапшота: %w", err)
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "issue_snapshots", start, err)
	if err != nil {
		return fmt.Errorf("фиксация транзакции: %w", err)
	}
	return nil
}
