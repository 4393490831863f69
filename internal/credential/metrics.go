package credential

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seo_credential_cache_hits_total",
		Help: "Credential lookups served from the cache.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seo_credential_cache_misses_total",
		Help: "Credential lookups that required a fresh solve.",
	})

	solves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_challenge_solves_total",
		Help: "Remote challenge solve attempts by outcome.",
	}, []string{"outcome"})

	mints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_signature_mints_total",
		Help: "Signature exchange attempts by outcome.",
	}, []string{"outcome"})
)
