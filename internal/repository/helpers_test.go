package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"stackit/internal/cache"
	"stackit/internal/database"
	"stackit/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	cache.SetClient(nil)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cache.SetClient(nil)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, reputation int) *models.User {
	t.Helper()
	u := &models.User{
		Username:   username,
		Email:      username + "@example.com",
		Password:   "hash",
		Role:       models.RoleUser,
		Reputation: reputation,
		LastActive: time.Now(),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedQuestion(t *testing.T, repo QuestionRepository, author *models.User, title string, tags ...string) *models.Question {
	t.Helper()
	q := &models.Question{
		Title:       title,
		Description: "A description that is long enough to be valid.",
		AuthorID:    author.ID,
	}
	require.NoError(t, repo.Create(t.Context(), q, tags))
	return q
}

func tagCount(t *testing.T, db *gorm.DB, name string) int {
	t.Helper()
	var tag models.Tag
	require.NoError(t, db.Unscoped().Where("name = ?", name).First(&tag).Error)
	return tag.QuestionCount
}
