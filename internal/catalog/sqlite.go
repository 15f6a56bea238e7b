package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// SQLiteCatalog reads a SQLite snapshot of the metadata catalog. The snapshot
// carries a pg_class-shaped table plus the filenode map for remapped objects:
//
//	pg_class(oid, relname, relfilenode, relam, relkind, relpersistence, relisshared)
//	pg_filenode_map(oid, shared, filenode)
type SQLiteCatalog struct {
	db *sql.DB
}

// OpenSQLite opens a catalog snapshot read-only. A missing file is an error:
// the checker cannot classify anything without the catalog.
func OpenSQLite(path string) (*SQLiteCatalog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog snapshot: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open catalog snapshot: %w", err)
	}
	return &SQLiteCatalog{db: db}, nil
}

// Objects implements Catalog.
func (c *SQLiteCatalog) Objects(ctx context.Context) ([]Object, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT oid, relname, relfilenode, relam, relkind, relpersistence, relisshared
		FROM pg_class`)
	if err != nil {
		return nil, fmt.Errorf("query pg_class: %w", err)
	}
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		var (
			obj               Object
			kind, persistence string
			shared            int
		)
		if err := rows.Scan(&obj.OID, &obj.Name, &obj.Filenode,
			(*uint32)(&obj.AccessMethod), &kind, &persistence, &shared); err != nil {
			return nil, fmt.Errorf("scan pg_class row: %w", err)
		}
		if kind == "" || persistence == "" {
			return nil, fmt.Errorf("pg_class row for %q: empty kind or persistence", obj.Name)
		}
		obj.Kind = Kind(kind[0])
		obj.Persistence = Persistence(persistence[0])
		obj.Shared = shared != 0
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan pg_class: %w", err)
	}
	return objects, nil
}

// MappedFilenode implements Catalog.
func (c *SQLiteCatalog) MappedFilenode(oid uint32, shared bool) (uint32, error) {
	sharedInt := 0
	if shared {
		sharedInt = 1
	}

	var filenode uint32
	err := c.db.QueryRow(
		"SELECT filenode FROM pg_filenode_map WHERE oid = ? AND shared = ?",
		oid, sharedInt,
	).Scan(&filenode)
	if err != nil {
		return 0, fmt.Errorf("filenode map lookup for oid %d: %w", oid, err)
	}
	return filenode, nil
}

// Close releases the snapshot handle.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}
