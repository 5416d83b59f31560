package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"interview/internal/models"
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// a single connection keeps the shared in-memory database alive and avoids table locks
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// SeedInterview stores a candidate and an interview config for tests that need a pending attempt.
func SeedInterview(t *testing.T, db *gorm.DB, candidateID, interviewID string) (*models.Candidate, *models.InterviewConfig) {
	t.Helper()

	candidate := &models.Candidate{ID: candidateID, Email: candidateID + "@example.com", Name: "Test " + candidateID}
	if err := db.Create(candidate).Error; err != nil {
		t.Fatalf("failed to seed candidate: %v", err)
	}
	cfg := &models.InterviewConfig{
		ID:              interviewID,
		JobRole:         "Backend Engineer",
		RequiredSkills:  []string{"Go", "SQL"},
		JobDescription:  "Build and run services.",
		Persona:         "friendly",
		Language:        "English",
		Questions:       []string{"Tell me about yourself."},
		DurationMinutes: 20,
	}
	if err := db.Create(cfg).Error; err != nil {
		t.Fatalf("failed to seed interview: %v", err)
	}
	return candidate, cfg
}
