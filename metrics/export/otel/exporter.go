package otel

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is read once per collection. *goSession.Engine implements it.
type Source interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
	AuditDelivered() uint64
}

type observeFunc func(metric.Observer, goSession.MetricsSnapshot)

// Exporter publishes engine metrics as OTel observable instruments.
type Exporter struct {
	registration metric.Registration
}

// NewExporter registers instruments on meter that observe engine.
func NewExporter(meter metric.Meter, engine *goSession.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	b := &instrumentSet{meter: meter}
	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		b.counter(def.Name, def.Help, func(s goSession.MetricsSnapshot) uint64 { return s.Counters[id] })
	}
	for _, def := range internaldefs.HistogramDefs {
		b.histogram(def)
	}
	b.counter(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, func(goSession.MetricsSnapshot) uint64 {
		return source.AuditDropped()
	})
	b.counter(internaldefs.AuditDeliveredName, internaldefs.AuditDeliveredHelp, func(goSession.MetricsSnapshot) uint64 {
		return source.AuditDelivered()
	})
	if b.err != nil {
		return nil, b.err
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snapshot := source.MetricsSnapshot()
		for _, observe := range b.observers {
			observe(o, snapshot)
		}
		return nil
	}, b.instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &Exporter{registration: registration}, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

// instrumentSet accumulates instruments and their observers; the first
// creation error sticks.
type instrumentSet struct {
	meter       metric.Meter
	instruments []metric.Observable
	observers   []observeFunc
	err         error
}

func (b *instrumentSet) counter(name, help string, value func(goSession.MetricsSnapshot) uint64) {
	if b.err != nil {
		return
	}
	ins, err := b.meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		b.err = fmt.Errorf("create counter %s: %w", name, err)
		return
	}
	b.instruments = append(b.instruments, ins)
	b.observers = append(b.observers, func(o metric.Observer, s goSession.MetricsSnapshot) {
		o.ObserveInt64(ins, int64(value(s)))
	})
}

// histogram exports cumulative bucket counts as one gauge with an "le"
// attribute per bucket, plus a sample count.
func (b *instrumentSet) histogram(def internaldefs.HistogramDef) {
	if b.err != nil {
		return
	}
	buckets, err := b.meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help+" Cumulative bucket counts."))
	if err != nil {
		b.err = fmt.Errorf("create bucket gauge %s: %w", def.Name, err)
		return
	}
	count, err := b.meter.Int64ObservableCounter(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		b.err = fmt.Errorf("create count %s: %w", def.Name, err)
		return
	}

	labels := make([]metric.ObserveOption, len(internaldefs.HistogramBucketLabels))
	for i, le := range internaldefs.HistogramBucketLabels {
		labels[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le)))
	}

	id := def.ID
	b.instruments = append(b.instruments, buckets, count)
	b.observers = append(b.observers, func(o metric.Observer, s goSession.MetricsSnapshot) {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(s.Histograms[id]))
		for i, label := range labels {
			o.ObserveInt64(buckets, int64(cumulative[i]), label)
		}
		o.ObserveInt64(count, int64(cumulative[len(cumulative)-1]))
	})
}
