package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are created eagerly so the client core can record them whether
// or not a registry was ever attached.
var (
	RemoteCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_remote_calls_total",
		Help: "Remote portal operations by operation and outcome kind.",
	}, []string{"operation", "outcome"})

	RemoteCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_remote_call_duration_seconds",
		Help:    "Latency of remote portal operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	SessionRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_session_refresh_total",
		Help: "Silent refresh calls actually sent, by result.",
	}, []string{"result"})

	SessionRefreshSharedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_session_refresh_shared_total",
		Help: "EnsureSession callers that joined an in-flight refresh.",
	})

	QuotationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_quotations_total",
		Help: "Quotation generations by result.",
	}, []string{"result"})

	UploadsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_uploads_rejected_total",
		Help: "Documents rejected locally before upload, by reason.",
	}, []string{"reason"})

	PaymentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_payments_total",
		Help: "Payment submissions by result.",
	}, []string{"result"})

	CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_catalog_cache_total",
		Help: "Catalog cache lookups by result (hit, miss).",
	}, []string{"result"})

	// Reference server.
	PoliciesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_server_policies_issued_total",
		Help: "Policies issued by the reference server.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_server_logins_success_total",
		Help: "Successful logins on the reference server.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_server_logins_failure_total",
		Help: "Failed logins on the reference server.",
	})
	UserRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_server_users_registered_total",
		Help: "Users registered on the reference server.",
	})
)

func all() []prometheus.Collector {
	return []prometheus.Collector{
		RemoteCallsTotal,
		RemoteCallDuration,
		SessionRefreshTotal,
		SessionRefreshSharedTotal,
		QuotationsTotal,
		UploadsRejectedTotal,
		PaymentsTotal,
		CatalogCacheTotal,
		PoliciesIssuedTotal,
		LoginSuccessTotal,
		LoginFailureTotal,
		UserRegisteredTotal,
	}
}

// InitCustomMetrics registers the portal metrics with reg. Registering
// twice with the same registry is not an error.
func InitCustomMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		return errors.New("prometheus registry is nil")
	}
	var errs []error
	for _, c := range all() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
