// Package suites provides a disposable postgres container and a base suite
// for repository integration tests. Tests run against real SQL, with the
// schema applied from the migrations directory.
package suites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	testDatabase = "folddb"
	testUser     = "fold"
	testPassword = "fold"
)

type PostgresContainer struct {
	testcontainers.Container
	ConnectionString string
}

// NewPostgresContainer starts a throwaway postgres and waits until it
// answers queries. fsync is off because the data is disposable.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	const port = "5432/tcp"

	dbURL := func(host string, port nat.Port) string {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			testUser, testPassword, host, port.Port(), testDatabase)
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17.5-alpine3.21",
		ExposedPorts: []string{port},
		Cmd:          []string{"postgres", "-c", "fsync=off"},
		Env: map[string]string{
			"POSTGRES_DB":       testDatabase,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForSQL(port, "postgres", dbURL).
			WithStartupTimeout(30 * time.Second).
			WithQuery("SELECT 1"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("container port: %w", err)
	}

	return &PostgresContainer{
		Container:        container,
		ConnectionString: dbURL(host, mappedPort),
	}, nil
}

// RepositoryTestSuite owns one container and one schema for the whole suite.
// Tables are wiped between tests so each test starts from a clean slate.
type RepositoryTestSuite struct {
	suite.Suite
	Container      *PostgresContainer
	DB             *gorm.DB
	SQLDB          *sql.DB
	MigrationsPath string
}

func (s *RepositoryTestSuite) SetupSuite() {
	s.T().Helper()

	if testing.Short() {
		s.T().Skip("Skipping database integration tests in short mode")
	}

	if s.MigrationsPath == "" {
		s.MigrationsPath = findMigrationsPath()
	}

	ctx := context.Background()
	container, err := NewPostgresContainer(ctx)
	if err != nil {
		s.T().Fatalf("Failed to create postgres container: %v", err)
	}
	s.Container = container

	sqlDB, err := sql.Open("postgres", container.ConnectionString)
	if err != nil {
		s.T().Fatalf("Failed to open sql connection: %v", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	s.SQLDB = sqlDB

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		s.T().Fatalf("Failed to ping database: %v", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		s.T().Fatalf("Failed to open gorm connection: %v", err)
	}
	s.DB = gormDB

	if err := s.runMigrations(); err != nil {
		s.T().Fatalf("Failed to run migrations: %v", err)
	}

	s.T().Cleanup(func() {
		if s.SQLDB != nil {
			_ = s.SQLDB.Close()
		}
		if s.Container != nil {
			_ = s.Container.Terminate(context.Background())
		}
	})
}

// findMigrationsPath walks up from the test's working directory to the
// module root and returns its migrations directory.
func findMigrationsPath() string {
	wd, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return filepath.Join(wd, "migrations")
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return ""
		}
		wd = parent
	}
}

func (s *RepositoryTestSuite) runMigrations() error {
	if s.MigrationsPath == "" {
		return errors.New("migrations path not found")
	}

	m, err := migrate.New("file://"+s.MigrationsPath, s.Container.ConnectionString)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// BeforeTest wipes every application table. A single cascading truncate keeps
// the wipe independent of the foreign key graph.
func (s *RepositoryTestSuite) BeforeTest(_, _ string) {
	if s.DB == nil {
		return
	}

	var tables []string
	s.DB.Raw(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_type = 'BASE TABLE'
		AND table_name NOT IN ('schema_migrations')
	`).Scan(&tables)

	if len(tables) == 0 {
		return
	}
	for i, table := range tables {
		tables[i] = fmt.Sprintf("%q", table)
	}
	s.DB.Exec(fmt.Sprintf(`TRUNCATE TABLE %s CASCADE`, strings.Join(tables, ", ")))
}

func (s *RepositoryTestSuite) CountRecords(table string) int64 {
	var c int64
	s.DB.Table(table).Count(&c)
	return c
}

func (s *RepositoryTestSuite) AssertNoDBError(err error, args ...interface{}) {
	s.Assert().NoError(err, args...)
}
