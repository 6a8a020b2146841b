package archive

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"chat-archive-bot/internal/domain"
	"chat-archive-bot/internal/infra/metrics"
)

// Service реализует плановый прогон архиватора.
type Service struct {
	buffer   domain.EventBuffer
	routes   domain.RouteResolver
	writer   domain.ArchiveWriter
	pageSize int
	log      zerolog.Logger
}

// NewService создаёт сервис архивации.
func NewService(buffer domain.EventBuffer, routes domain.RouteResolver, writer domain.ArchiveWriter, pageSize int, log zerolog.Logger) *Service {
	return &Service{buffer: buffer, routes: routes, writer: writer, pageSize: pageSize, log: log}
}

// Run выгружает необработанные события и дописывает их в архивы.
//
// Ошибки одного канала не останавливают остальные: они считаются и логируются,
// а события остаются необработанными до следующего прогона. Наружу метод
// возвращает только агрегированные счётчики.
func (s *Service) Run(ctx context.Context) domain.SyncReport {
	start := time.Now()
	defer func() { metrics.SyncRunSeconds.Observe(time.Since(start).Seconds()) }()

	var report domain.SyncReport

	events, err := s.buffer.ListUnprocessed(ctx, s.pageSize)
	if err != nil {
		s.log.Error().Err(err).Str("stage", "list").Msg("syncer: не удалось прочитать буфер")
		return report
	}
	if len(events) == 0 {
		return report
	}

	byChannel, order := groupByChannel(events)
	for _, channelID := range order {
		group := byChannel[channelID]
		channelLog := s.log.With().Str("channel", channelID).Int("events", len(group)).Logger()

		route, err := s.routes.Resolve(ctx, channelID)
		if errors.Is(err, domain.ErrRouteNotFound) {
			// Привязку могут добавить позже: события ждут в буфере до TTL.
			report.Skipped += len(group)
			metrics.SyncEventsTotal.WithLabelValues("skipped").Add(float64(len(group)))
			channelLog.Debug().Msg("syncer: канал без маршрута, пропускаем")
			continue
		}
		if err != nil {
			report.Failed += len(group)
			metrics.SyncEventsTotal.WithLabelValues("failed").Add(float64(len(group)))
			channelLog.Error().Err(err).Str("stage", "resolve").Msg("syncer: ошибка маршрутизации")
			continue
		}

		processed, failed := s.archiveChannel(ctx, route, group, channelLog)
		report.Processed += processed
		report.Failed += failed
	}

	s.log.Info().
		Int("processed", report.Processed).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Dur("took", time.Since(start)).
		Msg("syncer: прогон завершён")
	return report
}

// archiveChannel пишет события одного канала, группируя их по дням.
func (s *Service) archiveChannel(ctx context.Context, route domain.Route, events []domain.BufferedEvent, log zerolog.Logger) (processed, failed int) {
	SortEvents(events)

	byDay, order := groupByDay(events)
	for _, day := range order {
		group := byDay[day]
		date := EventTime(group[0])

		path := RenderPath(route.PathTemplate, route.ChannelID, date)
		lines := make([]domain.ArchiveLine, 0, len(group))
		for _, event := range group {
			lines = append(lines, RenderLine(event))
		}

		appended, err := s.writer.AppendLines(ctx, route, path, RenderHeader(route.ChannelID, date), lines)
		if err != nil {
			failed += len(group)
			metrics.SyncEventsTotal.WithLabelValues("failed").Add(float64(len(group)))
			log.Error().Err(err).Str("stage", "write").Str("path", path).Msg("syncer: запись архива не удалась")
			continue
		}

		// Отметка не транзакционна с записью: при падении здесь повторный
		// прогон допишет ноль строк благодаря маркерам событий.
		if err := s.buffer.MarkProcessed(ctx, group); err != nil {
			log.Error().Err(err).Str("stage", "mark").Str("path", path).Msg("syncer: события не отмечены обработанными")
		}
		processed += len(group)
		metrics.SyncEventsTotal.WithLabelValues("processed").Add(float64(len(group)))
		log.Info().Str("path", path).Int("appended", appended).Int("events", len(group)).Msg("syncer: архив записан")
	}
	return processed, failed
}

func groupByChannel(events []domain.BufferedEvent) (map[string][]domain.BufferedEvent, []string) {
	grouped := make(map[string][]domain.BufferedEvent)
	var order []string
	for _, event := range events {
		if _, ok := grouped[event.ChannelID]; !ok {
			order = append(order, event.ChannelID)
		}
		grouped[event.ChannelID] = append(grouped[event.ChannelID], event)
	}
	return grouped, order
}

func groupByDay(events []domain.BufferedEvent) (map[string][]domain.BufferedEvent, []string) {
	grouped := make(map[string][]domain.BufferedEvent)
	var order []string
	for _, event := range events {
		day := EventTime(event).Format("2006-01-02")
		if _, ok := grouped[day]; !ok {
			order = append(order, day)
		}
		grouped[day] = append(grouped[day], event)
	}
	return grouped, order
}
