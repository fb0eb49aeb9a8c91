package storage

import "fmt"

// ConnectionParams are the coordinates of one database. They are copied into
// an adapter at construction and never mutated afterwards. SQLite reads only
// Database, which is the file path.
type ConnectionParams struct {
	Host     string `koanf:"host" json:"host"`
	Database string `koanf:"database" json:"database"`
	User     string `koanf:"user" json:"user"`
	Password string `koanf:"password" json:"-"`
	Port     int    `koanf:"port" json:"port"`
}

// String renders the parameters with the password redacted.
func (p ConnectionParams) String() string {
	pw := ""
	if p.Password != "" {
		pw = ":***"
	}
	return fmt.Sprintf("%s%s@%s:%d/%s", p.User, pw, p.Host, p.Port, p.Database)
}
