package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	cases := []struct {
		url    string
		driver string
		dsn    string
	}{
		{"postgres://u:p@localhost/site", DriverPostgres, "postgres://u:p@localhost/site"},
		{"sqlite:///tmp/site.db", DriverSQLite, "/tmp/site.db"},
		{"file:site.db?cache=shared", DriverSQLite, "file:site.db?cache=shared"},
		{"./data/site.db", DriverSQLite, "./data/site.db"},
	}
	for _, tc := range cases {
		driver, dsn := ParseURL(tc.url)
		assert.Equal(t, tc.driver, driver, tc.url)
		assert.Equal(t, tc.dsn, dsn, tc.url)
	}
}

func TestMigrateAndSeedSQLite(t *testing.T) {
	db, err := Connect(filepath.Join(t.TempDir(), "site.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db), "migrations must be re-runnable")

	require.NoError(t, SeedUsers(db))
	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, len(DefaultAccounts), count)

	require.NoError(t, SeedUsers(db))
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, len(DefaultAccounts), count)

	created, err := CreateUser(db, DefaultAccounts[0])
	require.NoError(t, err)
	assert.False(t, created)
}

func TestFCMTokensByRole(t *testing.T) {
	db, err := Connect(filepath.Join(t.TempDir(), "site.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))
	require.NoError(t, SeedUsers(db))

	ctx := context.Background()
	idFor := func(email string) string {
		var id string
		require.NoError(t, db.Get(&id, db.Rebind("SELECT id FROM users WHERE email = ?"), email))
		return id
	}
	operatorID := idFor("john.smith@company.com")
	supervisorID := idFor("lisa.chen@company.com")

	require.NoError(t, UpsertFCMToken(ctx, db, operatorID, "tok-operator", "android"))
	require.NoError(t, UpsertFCMToken(ctx, db, supervisorID, "tok-supervisor", "web"))

	tokens, err := TokensForRoles(ctx, db, "supervisor", "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-supervisor"}, tokens)

	// re-registering moves the token to the new owner
	require.NoError(t, UpsertFCMToken(ctx, db, supervisorID, "tok-operator", "ios"))
	tokens, err = TokensForRoles(ctx, db, "supervisor")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tok-supervisor", "tok-operator"}, tokens)

	deleted, err := DeleteFCMToken(ctx, db, supervisorID, "tok-operator")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = DeleteFCMToken(ctx, db, supervisorID, "tok-operator")
	require.NoError(t, err)
	assert.False(t, deleted)
}
