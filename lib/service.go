package lib

import (
	"net/http"

	"github.com/lofwen/reddalert/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service holds the user-facing operations: visible queue reads, status
// transitions, subscription settings, token registration, detail lookups
// and stats. Feed ingestion lives in lib/poller.
type Service struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *gorm.DB
	transport http.RoundTripper
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, transport http.RoundTripper) *Service {
	return &Service{cfg, log, db, transport}
}
