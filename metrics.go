package hdmoonshine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics counts reconciliation work done against the engine. Each delegate
// registers into its own registry so several delegates can coexist.
type metrics struct {
	registry *prometheus.Registry

	instancesCreated   prometheus.Counter
	instancesDestroyed prometheus.Counter
	instanceUpdates    *prometheus.CounterVec
	meshesBuilt        prometheus.Counter
	lensesCreated      prometheus.Counter
	texturesLoaded     prometheus.Counter
	textureCacheHits   prometheus.Counter
	codingErrors       *prometheus.CounterVec
	renderSeconds      prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		instancesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdmoonshine",
			Name:      "instances_created_total",
			Help:      "Engine instances created by mesh prims.",
		}),
		instancesDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdmoonshine",
			Name:      "instances_destroyed_total",
			Help:      "Engine instances destroyed by mesh prims.",
		}),
		instanceUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hdmoonshine",
			Name:      "instance_updates_total",
			Help:      "In-place instance updates, by aspect.",
		}, []string{"aspect"}),
		meshesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdmoonshine",
			Name:      "meshes_built_total",
			Help:      "Engine meshes built from triangulated topology.",
		}),
		lensesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdmoonshine",
			Name:      "lenses_created_total",
			Help:      "Engine lenses created by camera prims.",
		}),
		texturesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdmoonshine",
			Name:      "textures_loaded_total",
			Help:      "Image files decoded and uploaded as raw textures.",
		}),
		textureCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdmoonshine",
			Name:      "texture_cache_hits_total",
			Help:      "Image texture requests served from the handle cache.",
		}),
		codingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hdmoonshine",
			Name:      "coding_errors_total",
			Help:      "Non-fatal inconsistencies reported during sync, by kind.",
		}, []string{"kind"}),
		renderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hdmoonshine",
			Name:      "render_duration_seconds",
			Help:      "Wall time of engine render calls.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
	m.registry.MustRegister(
		m.instancesCreated,
		m.instancesDestroyed,
		m.instanceUpdates,
		m.meshesBuilt,
		m.lensesCreated,
		m.texturesLoaded,
		m.textureCacheHits,
		m.codingErrors,
		m.renderSeconds,
	)
	return m
}
