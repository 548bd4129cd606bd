// Package store persists run results in an SQLite database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strconv"

	// use SQLite3
	_ "github.com/mattn/go-sqlite3"
)

//go:embed sql
var migrations embed.FS

// Open opens and migrates an SQLite3 database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", path))
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every connection would see its own database.
		db.SetMaxOpenConns(1)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	var version int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	files, err := migrations.ReadDir("sql")
	if err != nil {
		return err
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() < files[j].Name()
	})
	for _, f := range files {
		i, err := strconv.Atoi(f.Name()[:3])
		if err != nil {
			return err
		}
		if i <= version {
			continue
		}
		s, err := migrations.ReadFile(path.Join("sql", f.Name()))
		if err != nil {
			return err
		}
		txn, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := txn.ExecContext(ctx, string(s)); err != nil {
			txn.Rollback()
			return fmt.Errorf("migration %s: %w", f.Name(), err)
		}
		if _, err := txn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i)); err != nil {
			txn.Rollback()
			return err
		}
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

type db interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type scan interface {
	Scan(...interface{}) error
}
