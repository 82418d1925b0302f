// Package dbtest opens the PostgreSQL database used by store integration tests.
package dbtest

import (
	"context"
	"net/url"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mercadito/internal/db"
)

// EnvURL names the variable holding the test database URL. Integration tests skip without it.
const EnvURL = "MERCADITO_TEST_DATABASE_URL"

// Open recreates schema in the test database, applies the migrations inside it and returns a pool
// whose connections use it as search_path. Each package passes its own schema so packages can run
// in parallel against one database.
func Open(t testing.TB, schema string) *pgxpool.Pool {
	t.Helper()
	base := os.Getenv(EnvURL)
	if base == "" {
		t.Skipf("%s not set", EnvURL)
	}
	ctx := context.Background()

	admin, err := db.Connect(ctx, base, db.Options{MaxConns: 1})
	require.NoError(t, err)
	ident := pgx.Identifier{schema}.Sanitize()
	_, err = admin.Exec(ctx, `DROP SCHEMA IF EXISTS `+ident+` CASCADE`)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, `CREATE SCHEMA `+ident)
	require.NoError(t, err)
	admin.Close()

	scoped, err := url.Parse(base)
	require.NoError(t, err)
	q := scoped.Query()
	q.Set("search_path", schema)
	scoped.RawQuery = q.Encode()

	require.NoError(t, db.Migrate(scoped.String()))
	pool, err := db.Connect(ctx, scoped.String(), db.Options{MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}
