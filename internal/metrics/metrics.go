package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "license_activations_total",
		Help: "License activation attempts by outcome.",
	}, []string{"result"})

	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "license_verifications_total",
		Help: "Unauthenticated license verifications by outcome.",
	}, []string{"result"})

	KeysGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "license_keys_generated_total",
		Help: "License keys generated by superadmins.",
	})
)
