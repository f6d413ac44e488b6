package directory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	domain "github.com/example/realtime-collab/domain/user"
	"github.com/example/realtime-collab/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DirectoryModule provides user profile lookup backed by SQLite.
type DirectoryModule struct {
	db     *gorm.DB
	repo   *UserRepository
	dbPath string
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*DirectoryModule)(nil)
var _ mono.EventConsumerModule = (*DirectoryModule)(nil)
var _ mono.HealthCheckableModule = (*DirectoryModule)(nil)

// NewModule creates a new DirectoryModule.
func NewModule(moduleLogger types.Logger) *DirectoryModule {
	dbPath := os.Getenv("DIRECTORY_DB_PATH")
	if dbPath == "" {
		dbPath = "collab_users.db"
	}
	return &DirectoryModule{
		dbPath: dbPath,
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *DirectoryModule) Name() string {
	return "directory"
}

// Start opens the database and migrates the user schema.
func (m *DirectoryModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.repo = NewUserRepository(db)

	if os.Getenv("DIRECTORY_SEED_DEMO") == "1" {
		m.seedDemoUsers()
	}

	log.Printf("[directory] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop closes the database.
func (m *DirectoryModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[directory] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *DirectoryModule) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// Lookup resolves a user identity to a directory entry.
func (m *DirectoryModule) Lookup(_ context.Context, userID string) (*domain.User, error) {
	if m.repo == nil {
		return nil, errors.New("directory not started")
	}
	return m.repo.FindByID(userID)
}

// RegisterEventConsumers subscribes to presence events to track last-seen times.
func (m *DirectoryModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handlePresence, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handlePresence, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	log.Println("[directory] Registered event consumers: UserJoined, UserLeft")
	return nil
}

// handlePresence stamps the user row with the event's timestamp.
func (m *DirectoryModule) handlePresence(_ context.Context, event events.PresenceEvent, _ *mono.Msg) error {
	if m.repo == nil {
		return nil
	}
	if err := m.repo.TouchLastSeen(event.UserID, event.Timestamp); err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			m.logger.Warn("Failed to update last seen", "userID", event.UserID, "error", err)
		}
	}
	return nil
}

// seedDemoUsers inserts a couple of well-known users for local development.
func (m *DirectoryModule) seedDemoUsers() {
	demo := []domain.User{
		{ID: "demo-alice", DisplayName: "Alice", Email: "alice@example.com"},
		{ID: "demo-bob", DisplayName: "Bob", Email: "bob@example.com"},
	}
	for i := range demo {
		if _, err := m.repo.FindByID(demo[i].ID); err == nil {
			continue
		}
		if err := m.repo.Create(&demo[i]); err != nil {
			m.logger.Warn("Failed to seed demo user", "userID", demo[i].ID, "error", err)
		}
	}
	log.Println("[directory] Seeded demo users: demo-alice, demo-bob")
}
