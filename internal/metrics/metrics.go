package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics registers on the default prometheus registry, so New must only be
// called once per process. A nil *Metrics is valid and records nothing,
// which keeps tests free of registry collisions.
type Metrics struct {
	CapturesTotal      *prometheus.CounterVec
	EnrollmentsTotal   prometheus.Counter
	VerificationsTotal *prometheus.CounterVec
	GallerySize        prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		CapturesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fingerid_captures_total",
			Help: "Total capture attempts against the device service",
		}, []string{"result"}),
		EnrollmentsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fingerid_enrollments_total",
			Help: "Total successful enrollments",
		}),
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fingerid_verifications_total",
			Help: "Total verification scans by outcome",
		}, []string{"result"}),
		GallerySize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fingerid_gallery_size",
			Help: "Current number of enrolled identities",
		}),
	}
}

func (m *Metrics) ObserveCapture(result string) {
	if m == nil {
		return
	}
	m.CapturesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementEnrollments() {
	if m == nil {
		return
	}
	m.EnrollmentsTotal.Inc()
}

func (m *Metrics) ObserveVerification(result string) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetGallerySize(n int) {
	if m == nil {
		return
	}
	m.GallerySize.Set(float64(n))
}
