package lib

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/lofwen/reddalert/config"
	"github.com/lofwen/reddalert/lib/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.DeviceToken{},
		&models.Subscription{},
		&models.Post{},
		&models.PostStatus{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	return &Service{
		cfg:       &config.Config{FetchTimeoutSecs: 5},
		log:       zap.NewNop(),
		db:        db,
		transport: http.DefaultTransport,
	}
}
