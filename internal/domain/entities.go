package domain

import "time"

// FileRef описывает вложение сообщения.
type FileRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Mimetype string `json:"mimetype,omitempty"`
	URL      string `json:"url,omitempty"`
}

// BufferedEvent представляет входящее сообщение чата в буфере.
type BufferedEvent struct {
	EventID         string    `json:"event_id"`
	ChannelID       string    `json:"channel_id"`
	UserID          string    `json:"user_id"`
	Text            string    `json:"text"`
	SourceTimestamp string    `json:"source_ts"`
	ThreadID        string    `json:"thread_id,omitempty"`
	Attachments     []FileRef `json:"attachments,omitempty"`
	Processed       bool      `json:"processed"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Route описывает привязку канала к репозиторию назначения.
type Route struct {
	ChannelID    string
	Repository   string
	Branch       string
	PathTemplate string
}

// SyncReport содержит итоги одного прогона архиватора.
type SyncReport struct {
	Processed int
	Failed    int
	Skipped   int
}

// IssueRef описывает задачу трекера внутри снапшота.
type IssueRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// Issue представляет открытую задачу трекера с метками.
type Issue struct {
	Number int
	Title  string
	URL    string
	Labels []string
}

// IssueSnapshot содержит категоризированное состояние задач репозитория.
type IssueSnapshot struct {
	RepoName        string
	ReadyForTesting []IssueRef
	InProgress      []IssueRef
	Blocked         []IssueRef
	Backlog         []IssueRef
	Timestamp       time.Time
	ExpiresAt       time.Time
}

// ReadyCount возвращает размер категории ready-for-testing.
func (s IssueSnapshot) ReadyCount() int { return len(s.ReadyForTesting) }

// InProgressCount возвращает размер категории in-progress.
func (s IssueSnapshot) InProgressCount() int { return len(s.InProgress) }

// BlockedCount возвращает размер категории blocked.
func (s IssueSnapshot) BlockedCount() int { return len(s.Blocked) }

// BacklogCount возвращает размер категории backlog.
func (s IssueSnapshot) BacklogCount() int { return len(s.Backlog) }

// TotalCount возвращает общее число задач в снапшоте.
func (s IssueSnapshot) TotalCount() int {
	return len(s.ReadyForTesting) + len(s.InProgress) + len(s.Blocked) + len(s.Backlog)
}

// CategoryDelta описывает изменение одной категории между снапшотами.
type CategoryDelta struct {
	Count int
	Delta int
	New   []IssueRef
	Moved []IssueRef
}

// SnapshotDelta содержит изменения всех категорий между двумя снапшотами.
type SnapshotDelta struct {
	ReadyForTesting CategoryDelta
	InProgress      CategoryDelta
	Blocked         CategoryDelta
	Backlog         CategoryDelta
}
