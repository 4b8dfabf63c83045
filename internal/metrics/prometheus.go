// Package metrics provides Prometheus-based recording of form submissions.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PrometheusRecorder implements selection.Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	submissionsTotal   *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	batchLinesTotal    prometheus.Counter
}

// NewPrometheusRecorder registers the submission metrics on reg.
// A nil reg uses a fresh private registry.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indicadores_submissions_total",
				Help: "Total number of indicator submissions by outcome",
			},
			[]string{"outcome"},
		),
		submissionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indicadores_submission_duration_seconds",
				Help:    "Duration of indicator submissions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		batchLinesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "indicadores_batch_lines_total",
				Help: "Total number of input lines processed in batch mode",
			},
		),
	}
}

// ObserveSubmission records one finished submission.
func (p *PrometheusRecorder) ObserveSubmission(outcome string, elapsed time.Duration) {
	p.submissionsTotal.WithLabelValues(outcome).Inc()
	p.submissionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// IncBatchLine counts one processed batch line.
func (p *PrometheusRecorder) IncBatchLine() {
	p.batchLinesTotal.Inc()
}

// Serve exposes gatherer on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	}
}
