package app

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lofwen/reddalert/apperror"
	"github.com/lofwen/reddalert/config"
	"github.com/lofwen/reddalert/lib"
	"github.com/lofwen/reddalert/lib/models"
	"github.com/lofwen/reddalert/lib/poller"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service, pol *poller.Poller) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc, pol)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service, pol *poller.Poller) http.Handler {
	ctrl := &controller{log, svc, pol}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/ingest", func(r chi.Router) {
		r.Use(apiKeyAuth(cfg.IngestAPIKey, log))
		r.Post("/", ctrl.ingest)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(basicAuth("reddalert", cfg.GetCreds()))

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", ctrl.listPosts)
			r.Post("/{post_id}/status", ctrl.updateStatus)
			r.Get("/{subreddit}/{post_id}/details", ctrl.postDetails)
		})
		r.Get("/stats", ctrl.stats)
		r.Get("/subscriptions", ctrl.getSubscriptions)
		r.Put("/subscriptions", ctrl.putSubscriptions)
		r.Post("/tokens", ctrl.registerToken)
	})

	return r
}

type contextKey string

const userIDKey contextKey = "userID"

// basicAuth authenticates against the configured credential map and stashes
// the username in the request context as the caller's opaque user id. Auth
// is always checked before any handler runs.
func basicAuth(realm string, creds map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, realm)
				return
			}
			want, found := creds[user]
			if !found || subtle.ConstantTimeCompare([]byte(pass), []byte(want)) != 1 {
				unauthorized(w, realm)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm="%s"`, realm))
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func apiKeyAuth(apiKey string, log *zap.Logger) func(http.Handler) http.Handler {
	if apiKey == "" {
		log.Sugar().Info("Ingest auth is disabled since no API key is defined")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey != "" {
				got := r.Header.Get("X-API-Key")
				if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type controller struct {
	log *zap.Logger
	svc *lib.Service
	pol *poller.Poller
}

func (ctrl *controller) reject(w http.ResponseWriter, err error) {
	status := apperror.HTTPStatus(err)
	message := err.Error()

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Only taxonomy errors carry caller-safe messages.
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		message = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		ctrl.log.Sugar().Errorw("Failed to marshal response", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func (ctrl *controller) listPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := models.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = models.StatusNew
	}

	posts, err := ctrl.svc.VisiblePosts(ctx, userID(r), status)
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[lib.PostWithStatus, PostView](posts))
}

func (ctrl *controller) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postID := chi.URLParam(r, "post_id")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ctrl.reject(w, apperror.InvalidArgument("malformed request body"))
		return
	}

	if err := ctrl.svc.UpdateStatus(ctx, userID(r), postID, models.Status(body.Status)); err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) postDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subreddit := chi.URLParam(r, "subreddit")
	postID := chi.URLParam(r, "post_id")
	forceRefresh := r.URL.Query().Get("force_refresh") == "true"

	post, err := ctrl.svc.GetPostDetails(ctx, subreddit, postID, forceRefresh)
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, PostDetailsView{}.From(post))
}

func (ctrl *controller) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := ctrl.svc.UserStats(r.Context(), userID(r))
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, stats)
}

func (ctrl *controller) getSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := ctrl.svc.GetSubscriptions(r.Context(), userID(r))
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Subscription, SubscriptionView](subs))
}

func (ctrl *controller) putSubscriptions(w http.ResponseWriter, r *http.Request) {
	var views []SubscriptionView
	if err := json.NewDecoder(r.Body).Decode(&views); err != nil {
		ctrl.reject(w, apperror.InvalidArgument("malformed request body"))
		return
	}

	subs := make(models.Subscriptions, 0, len(views))
	for _, view := range views {
		subs = append(subs, view.ToModel())
	}

	if err := ctrl.svc.PutSubscriptions(r.Context(), userID(r), subs); err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) registerToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ctrl.reject(w, apperror.InvalidArgument("malformed request body"))
		return
	}

	if err := ctrl.svc.RegisterToken(r.Context(), userID(r), body.Token, body.Platform); err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Posts []IngestPost `json:"posts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ctrl.reject(w, apperror.InvalidArgument("malformed request body"))
		return
	}

	// Validate the whole batch before any write.
	now := time.Now().UTC()
	posts := make(models.Posts, 0, len(body.Posts))
	for i, p := range body.Posts {
		if p.RedditID == "" || p.Subreddit == "" {
			ctrl.reject(w, apperror.InvalidArgument(fmt.Sprintf("post %d is missing redditId or subreddit", i)))
			return
		}
		posts = append(posts, p.ToModel(now))
	}

	added, total, err := ctrl.pol.IngestBatch(ctx, posts)
	if err != nil {
		ctrl.reject(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"added": added, "total": total})
}
