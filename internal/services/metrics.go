package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UploadObserver captures telemetry for object storage uploads
type UploadObserver interface {
	RecordUpload(duration time.Duration, sizeBytes uint64, err error)
}

// PipelineObserver captures the outcome of report and claim submissions
type PipelineObserver interface {
	RecordReport(outcome string, photos int)
	RecordClaim(outcome string)
}

// PrometheusObserver exports upload and pipeline metrics to Prometheus
type PrometheusObserver struct {
	uploadDuration prometheus.Histogram
	uploadErrors   prometheus.Counter
	uploadBytes    prometheus.Counter
	reports        *prometheus.CounterVec
	reportPhotos   prometheus.Histogram
	claims         *prometheus.CounterVec
}

// NewPrometheusObserver registers the metrics on reg (default registerer when nil)
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "lostfound"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Latency of object storage uploads.",
			Buckets:   prometheus.DefBuckets,
		}),
		uploadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_errors_total",
			Help:      "Count of failed object storage uploads.",
		}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative payload size successfully uploaded to object storage.",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Item report submissions by outcome.",
		}, []string{"outcome"}),
		reportPhotos: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_photos",
			Help:      "Number of photos stored per created item.",
			Buckets:   []float64{0, 1, 2, 3},
		}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Claim submissions by outcome.",
		}, []string{"outcome"}),
	}

	collectors := []prometheus.Collector{
		o.uploadDuration, o.uploadErrors, o.uploadBytes, o.reports, o.reportPhotos, o.claims,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return o, nil
}

// RecordUpload tracks upload duration, size and failures
func (o *PrometheusObserver) RecordUpload(duration time.Duration, sizeBytes uint64, err error) {
	if o == nil {
		return
	}
	o.uploadDuration.Observe(duration.Seconds())
	if err != nil {
		o.uploadErrors.Inc()
		return
	}
	o.uploadBytes.Add(float64(sizeBytes))
}

func (o *PrometheusObserver) RecordReport(outcome string, photos int) {
	if o == nil {
		return
	}
	o.reports.WithLabelValues(outcome).Inc()
	if outcome == outcomeSuccess {
		o.reportPhotos.Observe(float64(photos))
	}
}

func (o *PrometheusObserver) RecordClaim(outcome string) {
	if o == nil {
		return
	}
	o.claims.WithLabelValues(outcome).Inc()
}

const outcomeSuccess = "success"

// outcomeOf labels a pipeline result for metrics
func outcomeOf(err error) string {
	var (
		validationErr *ValidationError
		storageErr    *StorageError
	)
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.As(err, &validationErr):
		return "validation"
	case errors.Is(err, ErrAuthRequired):
		return "unauthenticated"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.As(err, &storageErr):
		return "storage_error"
	default:
		return "persistence_error"
	}
}

type nopObserver struct{}

func (nopObserver) RecordUpload(time.Duration, uint64, error) {}

func (nopObserver) RecordReport(string, int) {}

func (nopObserver) RecordClaim(string) {}
