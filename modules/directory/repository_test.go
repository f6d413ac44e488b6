package directory

import (
	"errors"
	"testing"
	"time"

	domain "github.com/example/realtime-collab/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *UserRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return NewUserRepository(db)
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := newTestRepository(t)

	user := &domain.User{
		ID:          "user-1",
		DisplayName: "Alice",
		Email:       "alice@example.com",
	}
	require.NoError(t, repo.Create(user))

	found, err := repo.FindByID("user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", found.DisplayName)
	assert.Equal(t, "alice@example.com", found.Email)
}

func TestUserRepository_FindByIDNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.FindByID("nobody")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestUserRepository_TouchLastSeen(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Create(&domain.User{ID: "user-1", DisplayName: "Alice"}))

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastSeen("user-1", at))

	found, err := repo.FindByID("user-1")
	require.NoError(t, err)
	require.NotNil(t, found.LastSeenAt)
	assert.True(t, found.LastSeenAt.Equal(at))
}

func TestUserRepository_TouchLastSeenUnknownUser(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.TouchLastSeen("nobody", time.Now())
	assert.True(t, errors.Is(err, ErrUserNotFound))
}
