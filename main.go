package main

import (
	"net/http"
	"os"
	"time"

	"github.com/lofwen/reddalert/app"
	"github.com/lofwen/reddalert/config"
	"github.com/lofwen/reddalert/lib"
	"github.com/lofwen/reddalert/lib/poller"
	"github.com/lofwen/reddalert/push"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewTransport),

		fx.Provide(push.NewNotifierRegistry),
		fx.Provide(push.NewDispatcher),

		fx.Provide(lib.NewService),
		fx.Provide(poller.NewPoller),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*poller.Poller) {}),
		fx.Invoke(func(*http.Server) {}),
	).Run()
}
