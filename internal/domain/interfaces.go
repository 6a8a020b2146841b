package domain

import (
	"context"
	"errors"
	"time"
)

// ErrRouteNotFound возвращается, если для канала нет привязки к репозиторию.
var ErrRouteNotFound = errors.New("маршрут для канала не найден")

// ErrSnapshotNotFound возвращается, если снапшот для репозитория ещё не сохранён.
var ErrSnapshotNotFound = errors.New("снапшот репозитория не найден")

// EventBuffer хранит входящие события с TTL до их архивации.
type EventBuffer interface {
	Put(ctx context.Context, event BufferedEvent) error
	ListUnprocessed(ctx context.Context, limit int) ([]BufferedEvent, error)
	MarkProcessed(ctx context.Context, events []BufferedEvent) error
}

// RouteResolver отдаёт привязку канала к репозиторию назначения.
type RouteResolver interface {
	Resolve(ctx context.Context, channelID string) (Route, error)
}

// ArchiveWriter дописывает строки транскрипта в файл репозитория.
// Повторная запись строки с тем же маркером события не меняет содержимое.
type ArchiveWriter interface {
	AppendLines(ctx context.Context, route Route, path, header string, lines []ArchiveLine) (int, error)
}

// ArchiveLine представляет одну строку транскрипта с маркером события.
type ArchiveLine struct {
	EventID string
	Text    string
}

// IssueTracker отдаёт открытые задачи репозитория без pull request'ов.
type IssueTracker interface {
	ListOpenIssues(ctx context.Context, owner, repo string) ([]Issue, error)
}

// SnapshotRepo хранит ровно один снапшот на репозиторий.
type SnapshotRepo interface {
	GetLatest(ctx context.Context, repoName string) (IssueSnapshot, error)
	Replace(ctx context.Context, snapshot IssueSnapshot) error
}

// Notifier отправляет сообщение в канал чата.
type Notifier interface {
	PostMessage(ctx context.Context, channelID, text string) (string, error)
}

// Cache используется для простых TTL-замков и значений.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}
