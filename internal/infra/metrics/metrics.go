package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	IngestEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_events_total",
		Help: "Принятые входящие события по источникам",
	}, []string{"source", "outcome"})

	IngestRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_rejected_total",
		Help: "Отклонённые запросы вебхука по причинам",
	}, []string{"source", "reason"})

	BufferPutErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "buffer_put_errors_total",
		Help: "Ошибки записи событий в буфер",
	})

	SyncEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_events_total",
		Help: "События, обработанные архиватором, по исходу",
	}, []string{"outcome"})

	SyncRunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_run_seconds",
		Help:    "Время одного прогона архиватора",
		Buckets: prometheus.DefBuckets,
	})

	ReportRunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_run_seconds",
		Help:    "Время одного прогона отчёта по задачам",
		Buckets: prometheus.DefBuckets,
	})

	ReportRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_runs_total",
		Help: "Прогоны отчёта по задачам, по исходу",
	}, []string{"outcome"})

	NotifySendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_send_errors_total",
		Help: "Ошибки отправки сообщений в чат",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		IngestEventsTotal,
		IngestRejectedTotal,
		BufferPutErrors,
		SyncEventsTotal,
		SyncRunSeconds,
		ReportRunSeconds,
		ReportRunsTotal,
		NotifySendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}
