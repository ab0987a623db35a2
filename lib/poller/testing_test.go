package poller

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lofwen/reddalert/config"
	"github.com/lofwen/reddalert/lib/models"
	"github.com/lofwen/reddalert/push"
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

// fakeNotifier records sends instead of delivering them.
type fakeNotifier struct {
	mu    sync.Mutex
	sends []fakeSend
}

type fakeSend struct {
	token string
	n     push.Notification
}

func (f *fakeNotifier) Send(ctx context.Context, token string, n push.Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, fakeSend{token, n})
	return "fake-id", nil
}

func (f *fakeNotifier) sent() []fakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeSend(nil), f.sends...)
}

func newTestPoller(t *testing.T, db *gorm.DB, feedBaseURL string, subreddits []string) (*Poller, *fakeNotifier) {
	t.Helper()

	log := zap.NewNop()
	fake := &fakeNotifier{}
	dispatcher := push.NewDispatcher(nil, log, db, push.Registry{"push": fake})

	cfg := &config.Config{
		FeedBaseURL:      feedBaseURL,
		Subreddits:       subreddits,
		PollIntervalMins: 15,
		FetchTimeoutSecs: 5,
	}

	return &Poller{
		cfg:        cfg,
		log:        log,
		db:         db,
		dispatcher: dispatcher,
		fetcher: &Fetcher{
			log:       log,
			transport: http.DefaultTransport,
			baseURL:   feedBaseURL,
			timeout:   5 * time.Second,
		},
	}, fake
}
