package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	erDupKeyName  = 1061
	erFKDupName   = 1826
	erDupKeyEntry = 1022
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT NOT NULL PRIMARY KEY,
		first_seen_at DATETIME NOT NULL,
		last_note_id BIGINT UNSIGNED NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

	`CREATE TABLE IF NOT EXISTS notes (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		date DATETIME NOT NULL,
		text TEXT NOT NULL,
		user_id BIGINT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

	`ALTER TABLE users
		ADD CONSTRAINT fk_users_last_note
		FOREIGN KEY (last_note_id) REFERENCES notes(id) ON DELETE SET NULL;`,

	`CREATE TABLE IF NOT EXISTS tags (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		definition TEXT NOT NULL,
		KEY idx_tags_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

	`CREATE TABLE IF NOT EXISTS note_tags (
		note_id BIGINT UNSIGNED NOT NULL,
		tag_id INT UNSIGNED NOT NULL,
		FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE,
		UNIQUE KEY note_tag (note_id, tag_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
}

// MySQLDSN builds the driver DSN. An empty dbName connects to the server
// without selecting a database.
func MySQLDSN(user, password, host, dbName string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = dbName
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func OpenMySQL(ctx context.Context, user, password, host, dbName string) (*sql.DB, error) {
	db, err := sql.Open("mysql", MySQLDSN(user, password, host, dbName))
	if err != nil {
		return nil, fmt.Errorf("db: connect to mysql: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db: mysql ping failed: %w", err)
	}
	return db, nil
}

// CreateMySQLDatabase creates dbName on the server if it does not exist yet.
func CreateMySQLDatabase(ctx context.Context, user, password, host, dbName string) error {
	if err := checkDatabaseName(dbName); err != nil {
		return err
	}

	db, err := OpenMySQL(ctx, user, password, host, "")
	if err != nil {
		return err
	}
	defer db.Close()

	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` DEFAULT CHARACTER SET utf8mb4", dbName)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("db: create database %s: %w", dbName, err)
	}
	return nil
}

// checkDatabaseName rejects names that cannot be placed between backticks
// as they are.
func checkDatabaseName(name string) error {
	if name == "" || strings.ContainsAny(name, "`\x00") {
		return fmt.Errorf("db: invalid database name %q", name)
	}
	return nil
}

func createMySQLTables(ctx context.Context, db *sql.DB) error {
	for _, stmt := range mysqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if alreadyExists(err) {
				continue
			}
			return fmt.Errorf("db: mysql schema: %w", err)
		}
	}
	return nil
}

// alreadyExists reports errors raised when an ALTER TABLE re-adds a
// constraint that a previous migration already created.
func alreadyExists(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	switch myErr.Number {
	case erDupKeyName, erFKDupName, erDupKeyEntry:
		return true
	}
	return false
}
