package sql

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/syssam/record/dialect"
)

// DefaultSlowThreshold is the duration above which a statement is slow
// unless WithSlowThreshold says otherwise.
const DefaultSlowThreshold = 100 * time.Millisecond

// verb returns the lower-cased leading keyword of query, used to label
// statements. Unknown keywords are reported as "other".
func verb(query string) string {
	q := strings.TrimLeftFunc(query, unicode.IsSpace)
	if i := strings.IndexFunc(q, unicode.IsSpace); i > 0 {
		q = q[:i]
	}
	switch v := strings.ToLower(q); v {
	case "select", "insert", "update", "delete":
		return v
	default:
		return "other"
	}
}

// Metrics instruments the statements run through a MeteredDriver. The
// Prometheus collectors are exported when NewMetrics is given a
// registerer; Usage reads the same counts in process.
type Metrics struct {
	Statements *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Slow       prometheus.Counter

	reads    atomic.Int64
	writes   atomic.Int64
	failures atomic.Int64
	slow     atomic.Int64
	elapsed  atomic.Int64
}

// NewMetrics creates the statement collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "record_statements_total",
			Help: "Cumulative number of SQL statements, by verb and outcome.",
		}, []string{"verb", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "record_statement_duration_seconds",
			Help:    "SQL statement latency, by verb.",
			Buckets: prometheus.DefBuckets,
		}, []string{"verb"}),
		Slow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "record_slow_statements_total",
			Help: "Cumulative number of statements over the slow threshold.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Statements, m.Duration, m.Slow} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Usage is a point-in-time view of the counts held by Metrics.
type Usage struct {
	// Reads counts statements run through Query, including INSERT ... RETURNING.
	Reads int64
	// Writes counts statements run through Exec.
	Writes   int64
	Failures int64
	Slow     int64
	Elapsed  time.Duration
}

// Mean returns the average statement duration.
func (u Usage) Mean() time.Duration {
	n := u.Reads + u.Writes
	if n == 0 {
		return 0
	}
	return u.Elapsed / time.Duration(n)
}

func (u Usage) String() string {
	return fmt.Sprintf("reads=%d writes=%d failures=%d slow=%d elapsed=%s mean=%s",
		u.Reads, u.Writes, u.Failures, u.Slow, u.Elapsed, u.Mean())
}

// Usage returns the counts observed so far.
func (m *Metrics) Usage() Usage {
	return Usage{
		Reads:    m.reads.Load(),
		Writes:   m.writes.Load(),
		Failures: m.failures.Load(),
		Slow:     m.slow.Load(),
		Elapsed:  time.Duration(m.elapsed.Load()),
	}
}

func (m *Metrics) observe(st Statement, read bool, err error, slow bool) {
	if read {
		m.reads.Add(1)
	} else {
		m.writes.Add(1)
	}
	m.elapsed.Add(int64(st.Elapsed))
	outcome := "ok"
	if err != nil {
		m.failures.Add(1)
		outcome = "error"
	}
	v := verb(st.SQL)
	m.Statements.WithLabelValues(v, outcome).Inc()
	m.Duration.WithLabelValues(v).Observe(st.Elapsed.Seconds())
	if slow {
		m.slow.Add(1)
		m.Slow.Inc()
	}
}

// Statement is one statement run through a MeteredDriver.
type Statement struct {
	SQL     string
	Args    []any
	Elapsed time.Duration
}

// SlowHook is called after every statement slower than the threshold.
type SlowHook func(ctx context.Context, st Statement)

// MeteredDriver is a Driver whose statements, transactional or not, are
// timed and counted on a Metrics.
type MeteredDriver struct {
	*Driver
	metrics   *Metrics
	threshold atomic.Int64
	onSlow    SlowHook
}

// MeterOption configures a MeteredDriver.
type MeterOption func(*MeteredDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
func WithSlowThreshold(d time.Duration) MeterOption {
	return func(md *MeteredDriver) { md.threshold.Store(int64(d)) }
}

// OnSlowStatement registers h for slow statements.
func OnSlowStatement(h SlowHook) MeterOption {
	return func(md *MeteredDriver) { md.onSlow = h }
}

// LogSlowStatements reports slow statements as warnings on log.
func LogSlowStatements(log *zap.SugaredLogger) MeterOption {
	return OnSlowStatement(func(_ context.Context, st Statement) {
		log.Warnw("slow statement",
			"verb", verb(st.SQL),
			"elapsed", st.Elapsed,
			"sql", st.SQL,
			"args", st.Args,
		)
	})
}

// NewMeteredDriver wraps drv and records its statements on m. A nil m is
// replaced by unregistered metrics.
//
//	m, _ := sql.NewMetrics(prometheus.DefaultRegisterer)
//	drv := sql.NewMeteredDriver(base, m,
//		sql.WithSlowThreshold(200*time.Millisecond),
//		sql.LogSlowStatements(log),
//	)
//	exec, _ := sql.NewExecutor(drv)
func NewMeteredDriver(drv *Driver, m *Metrics, opts ...MeterOption) *MeteredDriver {
	if m == nil {
		m, _ = NewMetrics(nil)
	}
	md := &MeteredDriver{Driver: drv, metrics: m}
	md.threshold.Store(int64(DefaultSlowThreshold))
	for _, opt := range opts {
		opt(md)
	}
	return md
}

// Metrics returns the metrics the driver records on.
func (d *MeteredDriver) Metrics() *Metrics { return d.metrics }

// SlowThreshold returns the current slow statement threshold.
func (d *MeteredDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the slow statement threshold. It is safe to call
// while statements run.
func (d *MeteredDriver) SetSlowThreshold(t time.Duration) { d.threshold.Store(int64(t)) }

func (d *MeteredDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.run(ctx, query, args, true, func() error { return d.Driver.Query(ctx, query, args, v) })
}

func (d *MeteredDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.run(ctx, query, args, false, func() error { return d.Driver.Exec(ctx, query, args, v) })
}

// Tx starts a transaction whose statements are metered as well.
func (d *MeteredDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &meteredTx{Tx: tx, d: d}, nil
}

func (d *MeteredDriver) run(ctx context.Context, query string, args any, read bool, fn func() error) error {
	start := time.Now()
	err := fn()
	st := Statement{SQL: query, Elapsed: time.Since(start)}
	st.Args, _ = args.([]any)
	slow := st.Elapsed > d.SlowThreshold()
	d.metrics.observe(st, read, err, slow)
	if slow && d.onSlow != nil {
		d.onSlow(ctx, st)
	}
	return err
}

type meteredTx struct {
	dialect.Tx
	d *MeteredDriver
}

func (tx *meteredTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.d.run(ctx, query, args, true, func() error { return tx.Tx.Query(ctx, query, args, v) })
}

func (tx *meteredTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.d.run(ctx, query, args, false, func() error { return tx.Tx.Exec(ctx, query, args, v) })
}

var (
	_ dialect.Driver = (*MeteredDriver)(nil)
	_ dialect.Tx     = (*meteredTx)(nil)
)
