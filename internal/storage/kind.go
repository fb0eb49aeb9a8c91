package storage

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind names a relational engine family.
type Kind string

const (
	KindPostgres Kind = "postgresql"
	KindMSSQL    Kind = "mssql"
	KindMySQL    Kind = "mysql"
	KindSQLite   Kind = "sqlite"
)

// Kinds lists every supported engine in a stable order.
var Kinds = []Kind{KindPostgres, KindMSSQL, KindMySQL, KindSQLite}

var kindAliases = map[string]Kind{
	"postgresql": KindPostgres,
	"postgres":   KindPostgres,
	"pg":         KindPostgres,
	"mssql":      KindMSSQL,
	"sqlserver":  KindMSSQL,
	"mysql":      KindMySQL,
	"mariadb":    KindMySQL,
	"sqlite":     KindSQLite,
	"sqlite3":    KindSQLite,
}

// ParseKind resolves a kind name or one of its aliases, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		err := errors.Newf("unsupported storage.kind=%s", s)
		err = errors.WithHintf(err, "supported kinds: %s", strings.Join(kindNames(), ", "))
		return "", errors.Mark(err, ErrConfiguration)
	}
	return k, nil
}

func kindNames() []string {
	out := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

func (k Kind) String() string { return string(k) }

// DefaultPort is the port used when ConnectionParams.Port is zero.
// SQLite has none.
func (k Kind) DefaultPort() int {
	switch k {
	case KindPostgres:
		return 5432
	case KindMSSQL:
		return 1433
	case KindMySQL:
		return 3306
	default:
		return 0
	}
}

// Placeholder is the positional parameter marker callers write in
// statements for this kind: "%s" for server engines, "?" for SQLite.
func (k Kind) Placeholder() string {
	if k == KindSQLite {
		return "?"
	}
	return "%s"
}

// NeedsServer reports whether the kind talks to a network server (as
// opposed to a local file).
func (k Kind) NeedsServer() bool { return k != KindSQLite }
