// Package connect opens a record client from configuration.
//
//	cfg, err := config.Load("record.yaml")
//	...
//	s, err := connect.Open(ctx, cfg, connect.WithLogger(log))
//	...
//	defer s.Close()
//	users := s.Model(User)
package connect

import (
	"context"
	"fmt"
	"maps"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/syssam/record"
	"github.com/syssam/record/config"
	"github.com/syssam/record/dialect"
	"github.com/syssam/record/dialect/sql"
)

// Default ports per dialect.
const (
	mysqlPort    = 3306
	postgresPort = 5432
)

// Option configures Open.
type Option func(*options)

type options struct {
	log *zap.SugaredLogger
	reg prometheus.Registerer
}

// WithLogger sets the logger of the client and of the statement
// instrumentation.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRegisterer registers the statement metrics on reg when stats are
// enabled. Without it the metrics are collected but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// Session is an open client together with its statement metrics.
type Session struct {
	*record.Client
	// Metrics is nil unless stats are enabled.
	Metrics *sql.Metrics
}

// DriverName returns the database/sql driver registered for db.
func DriverName(db config.Database) string {
	if db.Driver != "" {
		return db.Driver
	}
	return db.Dialect
}

// DSN builds the data source name of db for its driver.
func DSN(db config.Database) (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}
	switch db.Dialect {
	case dialect.MySQL:
		c := mysql.NewConfig()
		c.User = db.User
		c.Passwd = db.Password
		c.Net = "tcp"
		c.Addr = hostPort(db.Host, db.Port, mysqlPort)
		c.DBName = db.Name
		c.ParseTime = true
		if len(db.Params) > 0 {
			c.Params = maps.Clone(db.Params)
		}
		return c.FormatDSN(), nil
	case dialect.Postgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   hostPort(db.Host, db.Port, postgresPort),
			Path:   "/" + db.Name,
		}
		if db.User != "" {
			u.User = url.UserPassword(db.User, db.Password)
		}
		q := url.Values{}
		for k, v := range db.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	case dialect.SQLite:
		return db.Path, nil
	default:
		return "", fmt.Errorf("connect: %w", record.NewConfigurationError(record.ErrUnsupportedDialect, "%q", db.Dialect))
	}
}

func hostPort(host string, port, def int) string {
	if port == 0 {
		port = def
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Open connects to the database described by cfg and returns a client on
// it. The pool is capped to one connection so the session transaction and
// every statement share it. The connection is verified with a ping.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	o := options{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg.Database)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(DriverName(cfg.Database), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect: ping: %w", err)
	}

	s := &Session{}
	base := sql.OpenDB(cfg.Database.Dialect, db.DB)
	var drv dialect.Driver = base
	if cfg.Stats.Enabled {
		s.Metrics, err = sql.NewMetrics(o.reg)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect: metrics: %w", err)
		}
		meterOpts := []sql.MeterOption{sql.LogSlowStatements(o.log)}
		if cfg.Stats.SlowThreshold > 0 {
			meterOpts = append(meterOpts, sql.WithSlowThreshold(cfg.Stats.SlowThreshold))
		}
		drv = sql.NewMeteredDriver(base, s.Metrics, meterOpts...)
	}
	if cfg.Stats.Debug {
		drv = sql.NewDebugDriver(drv, o.log)
	}

	exec, err := sql.NewExecutor(drv)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.Client, err = record.NewClient(exec, record.WithLogger(o.log))
	if err != nil {
		db.Close()
		return nil, err
	}
	o.log.Infow("database connected",
		"dialect", cfg.Database.Dialect,
		"driver", DriverName(cfg.Database),
		"stats", cfg.Stats.Enabled,
	)
	return s, nil
}
