package telemetry

import (
	"github.com/hamimarket/minimart/internal/observability"
)

type provider struct {
	tracer     observability.Tracer
	logger     observability.Logger
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

// New assembles an Observability provider backed by the supplied tracer,
// logger, and metric instruments. Nil inputs fall back to nops so callers
// can always rely on the returned value.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	counterCopy := make(map[observability.MetricKey]observability.Counter, len(counters))
	for k, v := range counters {
		if v != nil {
			counterCopy[k] = v
		}
	}

	histogramCopy := make(map[observability.MetricKey]observability.Histogram, len(histograms))
	for k, v := range histograms {
		if v != nil {
			histogramCopy[k] = v
		}
	}

	return &provider{
		tracer:     tracer,
		logger:     logger,
		counters:   counterCopy,
		histograms: histogramCopy,
	}
}

func (p *provider) Tracer() observability.Tracer {
	return p.tracer
}

func (p *provider) Logger() observability.Logger {
	return p.logger
}

func (p *provider) Metrics() observability.Metrics {
	return metrics{p: p}
}

type metrics struct{ p *provider }

func (m metrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.p.counters[name]; ok {
		return c
	}
	return observability.NopMetrics().Counter(name)
}

func (m metrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.p.histograms[name]; ok {
		return h
	}
	return observability.NopMetrics().Histogram(name)
}
