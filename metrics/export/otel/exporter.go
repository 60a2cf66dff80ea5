package otel

import (
	"context"
	"errors"
	"fmt"

	memberauth "github.com/liquorlink/memberauth"
	"github.com/liquorlink/memberauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() memberauth.MetricsSnapshot
	AuditDropped() uint64
}

// OTelExporter bridges the engine's snapshot metrics into OpenTelemetry as
// observable instruments: collection pulls a fresh snapshot inside the
// registered callback, so nothing is pushed between scrapes.
//
// Histogram buckets are exposed as one cumulative gauge per bound because
// the core snapshot carries raw bucket counts, not recorded samples.
type OTelExporter struct {
	source metricsSource

	counters   map[memberauth.MetricID]metric.Int64ObservableCounter
	bucketSets map[memberauth.MetricID][8]metric.Int64ObservableGauge
	sampleCnts map[memberauth.MetricID]metric.Int64ObservableGauge
	dropped    metric.Int64ObservableCounter

	registration metric.Registration
}

// NewOTelExporter registers observable instruments for every engine metric
// on the given meter.
func NewOTelExporter(meter metric.Meter, engine *memberauth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for a custom snapshot
// source, typically a test fake.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:     source,
		counters:   make(map[memberauth.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
		bucketSets: make(map[memberauth.MetricID][8]metric.Int64ObservableGauge, len(internaldefs.HistogramDefs)),
		sampleCnts: make(map[memberauth.MetricID]metric.Int64ObservableGauge, len(internaldefs.HistogramDefs)),
	}

	observables, err := e.buildInstruments(meter)
	if err != nil {
		return nil, err
	}

	e.registration, err = meter.RegisterCallback(e.collect, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	return e, nil
}

func (e *OTelExporter) buildInstruments(meter metric.Meter) ([]metric.Observable, error) {
	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*9+1)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		var buckets [8]metric.Int64ObservableGauge
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			buckets[i] = ins
			observables = append(observables, ins)
		}
		e.bucketSets[def.ID] = buckets

		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s_count: %w", def.Name, err)
		}
		e.sampleCnts[def.ID] = count
		observables = append(observables, count)
	}

	dropped, err := meter.Int64ObservableCounter(
		"memberauth_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.dropped = dropped
	observables = append(observables, dropped)

	return observables, nil
}

func (e *OTelExporter) collect(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for id, ins := range e.counters {
		observer.ObserveInt64(ins, int64(snapshot.Counters[id]))
	}

	for id, buckets := range e.bucketSets {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[id]))
		for i := range cumulative {
			observer.ObserveInt64(buckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(e.sampleCnts[id], int64(cumulative[len(cumulative)-1]))
	}

	observer.ObserveInt64(e.dropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback. Safe on nil.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
