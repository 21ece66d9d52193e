//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coregx/verso"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DatabaseSetup encapsulates database connection and cleanup.
type DatabaseSetup struct {
	DB        *verso.DB
	Container testcontainers.Container
}

// Close cleans up database resources.
func (ds *DatabaseSetup) Close() {
	if ds.DB != nil {
		ds.DB.Close() //nolint:errcheck
	}
	if ds.Container != nil {
		ds.Container.Terminate(context.Background()) //nolint:errcheck
	}
}

// withMatchedRows makes UPDATE report matched rather than changed rows.
func withMatchedRows(dsn string) string {
	if strings.Contains(dsn, "clientFoundRows=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&clientFoundRows=true"
	}
	return dsn + "?clientFoundRows=true"
}

// SetupMySQLTestDB creates a MySQL test database.
// Uses testcontainers if available, falls back to env DSN.
func SetupMySQLTestDB(t *testing.T, opts ...verso.Option) *DatabaseSetup {
	ctx := context.Background()

	// Check for manual DSN first
	if dsn := os.Getenv("MYSQL_TEST_DSN"); dsn != "" {
		db, err := verso.Open("mysql", withMatchedRows(dsn), opts...)
		require.NoError(t, err)
		return &DatabaseSetup{DB: db}
	}

	// Start MySQL in Docker via testcontainers
	mysqlContainer, err := mysql.Run(
		ctx,
		"mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("user"),
		mysql.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for MySQL integration tests: " + err.Error())
	}

	dsn, err := mysqlContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := verso.Open("mysql", withMatchedRows(dsn), opts...)
	require.NoError(t, err)

	return &DatabaseSetup{
		DB:        db,
		Container: mysqlContainer,
	}
}

// Blog holds the models of the user/post schema.
type Blog struct {
	User     *verso.Model
	Post     *verso.Model
	UserPost *verso.Model
}

// CreateBlogSchema creates the user and post tables and registers their
// models on a fresh registry.
func CreateBlogSchema(t *testing.T, db *verso.DB) Blog {
	t.Helper()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS post`,
		`DROP TABLE IF EXISTS user`,
		`CREATE TABLE user (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			email VARCHAR(128) UNIQUE
		)`,
		`CREATE TABLE post (
			id INT AUTO_INCREMENT PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			user_id INT NOT NULL
		)`,
	} {
		_, err := db.SQLDB().Exec(stmt)
		require.NoError(t, err)
	}

	reg := verso.NewRegistry()
	user, err := reg.Register("User", verso.Column("name"), verso.Column("email"))
	require.NoError(t, err)
	post, err := reg.Register("Post", verso.Column("title"), verso.ForeignKey("user_id", user.PrimaryKey()))
	require.NoError(t, err)

	return Blog{User: user, Post: post, UserPost: verso.MustJoin(user, post)}
}
