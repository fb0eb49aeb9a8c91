// Package all wires every built-in backend into the storage factory.
//
// It exists purely for side effects: importing it (even as a blank import)
// runs each backend's init function, which registers its Driver with the
// storage package. After that the following kinds are available:
//
//   - "postgresql" (dbaccess/internal/storage/postgres)
//   - "mssql"      (dbaccess/internal/storage/mssql)
//   - "mysql"      (dbaccess/internal/storage/mysql)
//   - "sqlite"     (dbaccess/internal/storage/sqlite)
//
// Typical usage:
//
//	import _ "dbaccess/internal/storage/all"
//
//	db, err := storage.Create("postgresql", "localhost", "app", "app", pw, 0)
//	if err != nil {
//	    // unknown kind or missing sqlite path
//	}
//	rows, err := db.Select(ctx, "SELECT id, name FROM users WHERE id = %s", 7)
//
// A binary that needs only a subset of engines can import the backend
// packages it wants instead of this one.
package all

import (
	_ "dbaccess/internal/storage/mssql"
	_ "dbaccess/internal/storage/mysql"
	_ "dbaccess/internal/storage/postgres"
	_ "dbaccess/internal/storage/sqlite"
)
