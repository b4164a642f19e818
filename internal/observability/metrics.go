package observability

// MetricKey identifies one instrument. Keys below are the full set the
// application emits; infrastructure registers instruments per key and
// the telemetry provider hands them out.
type MetricKey string

const (
	MOperationRequests MetricKey = "operation_requests_total"
	MOperationDuration MetricKey = "operation_duration_seconds"
	MOrdersConfirmed   MetricKey = "orders_confirmed_total"
	MOrdersCleaned     MetricKey = "orders_expired_cleaned_total"
	MReceiptWrites     MetricKey = "receipt_writes_total"
)

type Metrics interface {
	Counter(name MetricKey) Counter
	Histogram(name MetricKey) Histogram
}

// Label is a metric dimension. Instruments with variable labels accept
// them per call; Bind fixes them up front for hot paths.
type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }

type Counter interface {
	Add(delta float64, labels ...Label)
	Bind(labels ...Label) BoundCounter
}

type BoundCounter interface {
	Add(delta float64)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
	Bind(labels ...Label) BoundHistogram
}

type BoundHistogram interface {
	Observe(value float64)
}
