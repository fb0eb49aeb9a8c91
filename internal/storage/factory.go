package storage

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Driver builds a Connector for a kind from validated parameters. It must
// not perform I/O; sessions are opened lazily by the adapter.
type Driver func(params ConnectionParams) (Connector, error)

var (
	mu      sync.RWMutex
	drivers = map[Kind]Driver{}
)

// Register installs (or replaces) the driver for kind. Backend packages call
// it from init().
func Register(kind Kind, d Driver) {
	mu.Lock()
	defer mu.Unlock()
	drivers[kind] = d
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(drivers))
	for k := range drivers {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// Option configures an adapter.
type Option func(*adapter)

// WithLogger sets the logger used for per-operation debug lines.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(a *adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// New builds an adapter for kind. It performs no I/O: a bad host or
// password surfaces on the first operation. A zero port is replaced by the
// kind's default.
func New(kind Kind, params ConnectionParams, opts ...Option) (Adapter, error) {
	k, err := ParseKind(string(kind))
	if err != nil {
		return nil, err
	}
	if k == KindSQLite {
		if strings.TrimSpace(params.Database) == "" {
			return nil, errors.WithHint(
				configurationError("sqlite: database file path is required"),
				"set the database parameter to a file path, or :memory:")
		}
		params = ConnectionParams{Database: params.Database}
	} else if params.Port == 0 {
		params.Port = k.DefaultPort()
	}
	if params.Port < 0 || params.Port > 65535 {
		return nil, configurationError("%s: port %d out of range", k, params.Port)
	}

	mu.RLock()
	d, ok := drivers[k]
	mu.RUnlock()
	if !ok {
		return nil, errors.WithHint(
			configurationError("storage.kind=%s is not linked into this binary", k),
			`blank-import "dbaccess/internal/storage/all" to enable every backend`)
	}

	conn, err := d(params)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			return nil, err
		}
		return nil, errors.Mark(err, ErrConfiguration)
	}

	a := &adapter{
		ops: ops{
			kind:      k,
			connector: conn,
			log:       zap.NewNop().Sugar(),
		},
		params: params,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Create is the positional form of New: it parses the kind name and builds
// ConnectionParams from the remaining arguments.
func Create(kind, host, database, user, password string, port int, opts ...Option) (Adapter, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return New(k, ConnectionParams{
		Host:     host,
		Database: database,
		User:     user,
		Password: password,
		Port:     port,
	}, opts...)
}
