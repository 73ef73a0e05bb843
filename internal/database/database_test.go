package database

import (
	"context"
	"testing"

	"stackit/internal/config"
	"stackit/internal/middleware"
	"stackit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: NewGormLogger(middleware.Logger, logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// each :memory: connection is its own database
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_Defaults(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db, &config.Config{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "stackit"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=stackit sslmode=disable", DSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}

func TestPersistentModels_AutoMigrate(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, runAutoMigrate(db))

	for _, table := range []string{"users", "tags", "questions", "question_tags", "answers", "answer_comments", "votes", "notifications"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Vote{}, "idx_votes_target_user"))
}

func TestRegisteredMigrations(t *testing.T) {
	m := GetMigrationByVersion(1)
	require.NotNil(t, m)
	assert.Equal(t, "000001_init", m.String())
	assert.Contains(t, m.UpScript, "CREATE TABLE")
	assert.Contains(t, m.UpScript, "idx_answers_one_accepted")
	assert.Contains(t, m.DownScript, "DROP TABLE")
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		mode, env       string
		wantSQL, wantAM bool
		wantErr         bool
	}{
		{"", "development", true, true, false},
		{"hybrid", "production", true, false, false},
		{"sql", "development", true, false, false},
		{"auto", "test", false, true, false},
		{"auto", "production", false, false, true},
		{"magic", "development", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode+"/"+tt.env, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&config.Config{DBSchemaMode: tt.mode, Env: tt.env})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAM, runAuto)
		})
	}
}

func TestApplySchema_AutoOnSQLite(t *testing.T) {
	db := openSQLite(t)
	err := ApplySchema(context.Background(), db, &config.Config{DBSchemaMode: SchemaModeAuto, Env: "test"})
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&models.Notification{}))
}
