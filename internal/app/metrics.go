package app

import (
	"strconv"
	"time"

	"github.com/hashicorp/go-metrics"

	"github.com/bft-labs/logbus/pkg/lifecycle"
)

var (
	MetricSendCount           = []string{"logbus", "send", "count"}
	MetricSendErrorCount      = []string{"logbus", "send", "error", "count"}
	MetricSendLatency         = []string{"logbus", "send", "latency"}
	MetricConnectCount        = []string{"logbus", "connect", "count"}
	MetricConnectErrorCount   = []string{"logbus", "connect", "error", "count"}
	MetricDeliverCount        = []string{"logbus", "deliver", "count"}
	MetricDeliverErrorCount   = []string{"logbus", "deliver", "error", "count"}
	MetricReceiveRestartCount = []string{"logbus", "receive", "restart", "count"}
	MetricState               = []string{"logbus", "state"}
)

type TelemetryLabel string

var (
	LabelInstance TelemetryLabel = "instance"
	LabelStream   TelemetryLabel = "stream"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func streamLabel(streamIndex int) metrics.Label {
	return LabelStream.M(strconv.Itoa(streamIndex))
}

// telemetry emits metrics with the instance label attached.
type telemetry struct {
	sink   metrics.MetricSink
	labels []metrics.Label
}

func newTelemetry(sink metrics.MetricSink, instance string) telemetry {
	if sink == nil {
		sink = &metrics.BlackholeSink{}
	}
	return telemetry{sink: sink, labels: []metrics.Label{LabelInstance.M(instance)}}
}

func (t telemetry) with(extra []metrics.Label) []metrics.Label {
	if len(extra) == 0 {
		return t.labels
	}
	return append(append(make([]metrics.Label, 0, len(t.labels)+len(extra)), t.labels...), extra...)
}

func (t telemetry) incr(key []string, extra ...metrics.Label) {
	t.sink.IncrCounterWithLabels(key, 1, t.with(extra))
}

func (t telemetry) since(key []string, start time.Time, extra ...metrics.Label) {
	elapsed := float32(time.Since(start).Seconds() * 1000)
	t.sink.AddSampleWithLabels(key, elapsed, t.with(extra))
}

func (t telemetry) state(s lifecycle.State) {
	t.sink.SetGaugeWithLabels(MetricState, float32(s), t.labels)
}
