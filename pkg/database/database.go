package database

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"airline/pkg/logger"
	"airline/pkg/repository"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// Open connects to driver ("postgres" or "sqlite") and verifies the
// connection with a ping.
func Open(driver, dsn string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case "postgres":
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		// Serverless PG: keep pool small, connections short-lived
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetConnMaxIdleTime(30 * time.Second)
	case "sqlite":
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One writer at a time; seat updates rely on it.
		db.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Dialect maps a driver name to the repository dialect.
func Dialect(driver string) repository.Dialect {
	if driver == "sqlite" {
		return repository.DialectSQLite
	}
	return repository.DialectPostgres
}

func gooseSetup(driver string, log *logger.Logger) (string, error) {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: log})

	switch driver {
	case "postgres":
		return "migrations/postgres", goose.SetDialect("postgres")
	case "sqlite":
		return "migrations/sqlite", goose.SetDialect("sqlite3")
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// Migrate applies every pending migration for driver.
func Migrate(db *sql.DB, driver string, log *logger.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir, err := gooseSetup(driver, log)
	if err != nil {
		return err
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(db *sql.DB, driver string, log *logger.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir, err := gooseSetup(driver, log)
	if err != nil {
		return err
	}
	if err := goose.Down(db, dir); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func Version(db *sql.DB, driver string, log *logger.Logger) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if _, err := gooseSetup(driver, log); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}

type gooseLogger struct {
	log *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
