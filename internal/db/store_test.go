package db

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// dockerAvailable returns true if a Docker daemon is reachable.
func dockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB starts a PostgreSQL container, runs migrations and returns a connected DB.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !dockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("modlicense_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := DefaultConfig(connStr)
	cfg.MaxConns = 10
	cfg.MinConns = 1

	database, err := New(ctx, cfg, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = database.Migrate(ctx)
	require.NoError(t, err)

	return database
}

func testToken(owner string, n int, tier models.Tier, days int, issuedAt time.Time) *models.TokenRecord {
	return models.NewTokenRecord(owner, fmt.Sprintf("%032X", n), tier, days, issuedAt)
}

// now is truncated to microseconds to match timestamptz precision.
func dbNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	applied, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	migrations, err := GetMigrations()
	require.NoError(t, err)
	version, err := db.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, version)
}

func TestStore_ClaimTokens(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := dbNow()
	week := 7 * 24 * time.Hour

	tokens := []*models.TokenRecord{
		testToken("u1", 1, models.TierBasic, 7, now),
		testToken("u1", 2, models.TierVIP, 1, now),
	}
	require.NoError(t, db.ClaimTokens(ctx, "u1", now, week, tokens))

	cd, err := db.GetCooldown(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, cd.LastClaimAt)
	assert.True(t, cd.LastClaimAt.Equal(now))

	listed, err := db.ListTokensByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	for _, rec := range listed {
		require.NotNil(t, rec.ExpiresAt)
		assert.True(t, rec.ExpiresAt.Equal(now.Add(models.Days(rec.DurationDays))))
	}

	t.Run("within cooldown", func(t *testing.T) {
		later := now.Add(time.Hour)
		err := db.ClaimTokens(ctx, "u1", later, week, []*models.TokenRecord{testToken("u1", 3, models.TierBasic, 7, later)})
		assert.ErrorIs(t, err, license.ErrCooldownActive)

		listed, err := db.ListTokensByOwner(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, listed, 2)
	})

	t.Run("duplicate token rolls back cooldown", func(t *testing.T) {
		err := db.ClaimTokens(ctx, "u2", now, week, []*models.TokenRecord{testToken("u2", 1, models.TierBasic, 7, now)})
		assert.ErrorIs(t, err, license.ErrDuplicateToken)

		cd, err := db.GetCooldown(ctx, "u2")
		require.NoError(t, err)
		assert.Nil(t, cd)
	})

	t.Run("after cooldown", func(t *testing.T) {
		later := now.Add(week)
		err := db.ClaimTokens(ctx, "u1", later, week, []*models.TokenRecord{testToken("u1", 4, models.TierBasic, 7, later)})
		require.NoError(t, err)
	})

	t.Run("after reset", func(t *testing.T) {
		reset, err := db.ResetCooldown(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, reset)

		err = db.ClaimTokens(ctx, "u1", now.Add(week), week, []*models.TokenRecord{testToken("u1", 5, models.TierBasic, 7, now)})
		require.NoError(t, err)

		reset, err = db.ResetCooldown(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, reset)
	})
}

func TestStore_ConcurrentClaims(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := dbNow()

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- db.ClaimTokens(ctx, "racer", now, 7*24*time.Hour,
				[]*models.TokenRecord{testToken("racer", 100+i, models.TierBasic, 7, now)})
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, license.ErrCooldownActive)
	}
	assert.Equal(t, 1, succeeded)

	listed, err := db.ListTokensByOwner(ctx, "racer")
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestStore_TokenLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := dbNow()

	rec := testToken("u1", 10, models.TierVIP, 7, now)
	hwid := "HWID-1"
	rec.HardwareID = &hwid
	require.NoError(t, db.CreateToken(ctx, rec))
	assert.ErrorIs(t, db.CreateToken(ctx, testToken("u9", 10, models.TierBasic, 1, now)), license.ErrDuplicateToken)

	t.Run("get scoped by owner", func(t *testing.T) {
		got, err := db.GetToken(ctx, "u1", rec.Token)
		require.NoError(t, err)
		assert.Equal(t, models.TierVIP, got.Tier)
		assert.Equal(t, rec.ID, got.ID)

		_, err = db.GetToken(ctx, "u2", rec.Token)
		assert.ErrorIs(t, err, license.ErrTokenNotFound)
	})

	t.Run("clear hardware id", func(t *testing.T) {
		_, err := db.ClearHardwareID(ctx, "u2", rec.Token, now)
		assert.ErrorIs(t, err, license.ErrTokenNotFound)

		cleared, err := db.ClearHardwareID(ctx, "u1", rec.Token, now)
		require.NoError(t, err)
		assert.True(t, cleared)

		cleared, err = db.ClearHardwareID(ctx, "u1", rec.Token, now)
		require.NoError(t, err)
		assert.False(t, cleared)

		got, err := db.GetToken(ctx, "u1", rec.Token)
		require.NoError(t, err)
		assert.Nil(t, got.HardwareID)
		require.NotNil(t, got.LastHWIDResetAt)
		assert.True(t, got.LastHWIDResetAt.Equal(now))
	})

	t.Run("extend", func(t *testing.T) {
		got, err := db.ExtendToken(ctx, "u1", rec.Token, 3)
		require.NoError(t, err)
		assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt.Add(models.Days(3))))
		assert.Equal(t, 10, got.DurationDays)

		unlimited := testToken("u1", 11, models.TierBasic, 0, now)
		require.NoError(t, db.CreateToken(ctx, unlimited))
		got, err = db.ExtendToken(ctx, "u1", unlimited.Token, 3)
		require.NoError(t, err)
		assert.Nil(t, got.ExpiresAt)

		_, err = db.ExtendToken(ctx, "u2", rec.Token, 3)
		assert.ErrorIs(t, err, license.ErrTokenNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := db.DeleteToken(ctx, "u2", rec.Token)
		require.NoError(t, err)
		assert.False(t, deleted)

		deleted, err = db.DeleteToken(ctx, "u1", rec.Token)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = db.DeleteToken(ctx, "u1", rec.Token)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestStore_ClearOwnerHardwareIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := dbNow()

	for i := 0; i < 3; i++ {
		rec := testToken("u1", 20+i, models.TierBasic, 7, now)
		if i < 2 {
			hwid := fmt.Sprintf("HWID-%d", i)
			rec.HardwareID = &hwid
		}
		require.NoError(t, db.CreateToken(ctx, rec))
	}

	n, err := db.ClearOwnerHardwareIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = db.ClearOwnerHardwareIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStore_LegacyAliasColumn(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := dbNow()

	rows := []struct {
		token string
		tier  *string
		alias *string
		want  models.Tier
	}{
		{fmt.Sprintf("%032X", 31), nil, strPtr("vip"), models.TierVIP},
		{fmt.Sprintf("%032X", 32), nil, strPtr("Premium"), models.TierVIP},
		{fmt.Sprintf("%032X", 33), strPtr("BASIC"), strPtr("vip"), models.TierBasic},
		{fmt.Sprintf("%032X", 34), nil, nil, models.TierNone},
	}
	for i, r := range rows {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO tokens (id, token, owner_id, tier, alias, issued_at, duration_days)
			VALUES (gen_random_uuid(), $1, 'legacy', $2, $3, $4, 0)
		`, r.token, r.tier, r.alias, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	listed, err := db.ListTokensByOwner(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, listed, len(rows))

	got := make(map[string]models.Tier)
	for _, rec := range listed {
		got[rec.Token] = rec.Tier
	}
	for _, r := range rows {
		assert.Equal(t, r.want, got[r.token], r.token)
	}
	assert.Equal(t, rows[3].token, listed[0].Token, "newest first")
}

func TestStore_Owners(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := dbNow()

	for i := 1; i <= 5; i++ {
		o := models.NewOwner(fmt.Sprintf("10%d", i), fmt.Sprintf("modder_%d", i), "")
		require.NoError(t, db.UpsertOwner(ctx, o))
		assert.Equal(t, models.TierNone, o.Tier)
	}
	require.NoError(t, db.CreateToken(ctx, testToken("101", 40, models.TierBasic, 7, now)))
	require.NoError(t, db.CreateToken(ctx, testToken("101", 41, models.TierBasic, 1, now.AddDate(0, 0, -10))))

	require.NoError(t, db.SetOwnerTier(ctx, "101", models.TierVIP))
	relogin := models.NewOwner("101", "renamed", "avatarhash")
	require.NoError(t, db.UpsertOwner(ctx, relogin))
	assert.Equal(t, models.TierVIP, relogin.Tier, "login keeps the synced tier")

	owner, err := db.GetOwner(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "renamed", owner.Username)

	_, err = db.GetOwner(ctx, "missing")
	assert.ErrorIs(t, err, ErrOwnerNotFound)

	page, err := db.SearchOwners(ctx, models.OwnerSearch{PerPage: 2, Page: 1}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Owners, 2)

	page, err = db.SearchOwners(ctx, models.OwnerSearch{Query: "101", PerPage: 25, Page: 1}, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, 2, page.Owners[0].TokenCount)
	assert.Equal(t, 1, page.Owners[0].ActiveTokenCount)
	assert.Equal(t, models.TierVIP, page.Owners[0].Tier)

	page, err = db.SearchOwners(ctx, models.OwnerSearch{Query: "MODDER_", PerPage: 25, Page: 1}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)

	page, err = db.SearchOwners(ctx, models.OwnerSearch{Query: "%", PerPage: 25, Page: 1}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func strPtr(s string) *string { return &s }
