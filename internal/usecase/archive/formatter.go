package archive

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"chat-archive-bot/internal/domain"
)

// DefaultPathTemplate используется для маршрутов без собственного шаблона.
const DefaultPathTemplate = "archives/{channel}/{date}.md"

// RenderPath подставляет канал и дату в шаблон пути архива.
func RenderPath(template, channelID string, date time.Time) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPathTemplate
	}
	path := strings.ReplaceAll(template, "{channel}", channelID)
	path = strings.ReplaceAll(path, "{date}", date.Format("2006-01-02"))
	return path
}

// RenderHeader формирует заголовок нового файла архива.
func RenderHeader(channelID string, date time.Time) string {
	return fmt.Sprintf("# Channel %s — %s\n", channelID, date.Format("2006-01-02"))
}

// RenderLine формирует строку транскрипта с маркером события.
// Маркер делает повторную запись той же строки no-op для писателя архива.
func RenderLine(event domain.BufferedEvent) domain.ArchiveLine {
	ts := EventTime(event).Format("15:04:05")
	var b strings.Builder
	fmt.Fprintf(&b, "- **%s** `%s`: %s", ts, event.UserID, strings.TrimSpace(event.Text))
	for _, ref := range event.Attachments {
		fmt.Fprintf(&b, " [file: %s]", ref.Name)
	}
	fmt.Fprintf(&b, " <!-- event:%s -->", event.EventID)
	return domain.ArchiveLine{EventID: event.EventID, Text: b.String()}
}

// EventTime переводит исходный таймстамп источника в момент времени UTC.
// Локальное время получения не используется: порядок архива должен
// воспроизводиться при передоставке и расхождении часов.
func EventTime(event domain.BufferedEvent) time.Time {
	raw := event.SourceTimestamp
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		raw = raw[:idx]
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// SortEvents упорядочивает события по исходному таймстампу источника.
func SortEvents(events []domain.BufferedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return lessSourceTS(events[i].SourceTimestamp, events[j].SourceTimestamp)
	})
}

func lessSourceTS(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}
