// cmd/portal/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/bosgames/portal/internal/device"
	"github.com/bosgames/portal/internal/dispatch"
	"github.com/bosgames/portal/internal/middleware"
	"github.com/bosgames/portal/internal/notify"
	"github.com/bosgames/portal/internal/pending"
	"github.com/bosgames/portal/internal/portalapi"
	"github.com/bosgames/portal/internal/relay"
	"github.com/bosgames/portal/internal/router"
	"github.com/bosgames/portal/internal/session"
)

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// openSlotStore picks the pending-event backend from PENDING_BACKEND:
// memory (default), redis, or postgres.
func openSlotStore(ctx context.Context, logger *logrus.Logger) (pending.SlotStore, error) {
	switch backend := getEnv("PENDING_BACKEND", "memory"); backend {
	case "memory":
		return pending.NewMemoryStore(), nil
	case "redis":
		rdb, err := pending.ConnectRedis(getEnv("REDIS_ADDR", "localhost:6379"), getEnvInt("REDIS_DB", 0))
		if err != nil {
			return nil, err
		}
		logger.Info("pending events backed by redis")
		return pending.NewRedisStore(rdb, getEnv("REDIS_NAMESPACE", "portal")), nil
	case "postgres":
		pool, err := pending.ConnectPostgres(ctx, os.Getenv("DATABASE_URL"))
		if err != nil {
			return nil, err
		}
		logger.Info("pending events backed by postgres")
		return pending.NewPostgresStore(pool), nil
	default:
		return nil, errors.New("unknown PENDING_BACKEND: " + backend)
	}
}

// restoreSession loads sealed credentials when a passphrase is supplied
// and re-seals them whenever the token pair rotates.
func restoreSession(sess *session.Session, logger *logrus.Logger) {
	passphrase := os.Getenv("PORTAL_PASSPHRASE")
	if passphrase == "" {
		return
	}
	dir, err := device.ConfigDir()
	if err != nil {
		logger.WithError(err).Warn("config dir unavailable, skipping credential restore")
		return
	}
	store := session.CredentialStore{Path: getEnv("CREDENTIALS_FILE", filepath.Join(dir, "credentials.sealed"))}

	creds, err := store.Load(passphrase)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no stored credentials, starting unauthenticated")
	case err != nil:
		logger.WithError(err).Warn("credential restore failed")
	default:
		sess.SetTokens(creds.Tokens)
		logger.WithField("email", creds.Email).Info("session restored")
	}

	email := creds.Email
	sess.OnTokensChanged = func(tp portalapi.TokenPair) {
		if err := store.Save(passphrase, session.Credentials{Email: email, Tokens: tp}); err != nil {
			logger.WithError(err).Warn("failed to re-seal credentials")
		}
	}
}

func main() {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openSlotStore(ctx, logger)
	if err != nil {
		logger.WithError(err).Fatal("pending backend init failed")
	}

	deviceID, err := device.ID()
	if err != nil {
		logger.WithError(err).Fatal("device id init failed")
	}
	logger.WithFields(logrus.Fields{"device": deviceID, "platform": device.Platform()}).
		Info("portal starting")

	api := portalapi.NewClient(getEnv("PORTAL_API_URL", "https://api.bosgames.com"), nil)
	sess := session.New(api, logger)
	restoreSession(sess, logger)

	notifier := notify.LogNotifier{Logger: logger}
	worker := relay.NewWorker(pending.NewRelay(store, logger), notifier, logger)

	rt := router.New(router.Config{}, router.Hooks{
		OnAcceptTimeout: func(matchID string) {
			logger.WithField("matchId", matchID).Warn("match acceptance expired")
		},
		OnRedirectLive: func(matchID string) {
			logger.WithField("matchId", matchID).Info("match is live")
		},
	}, func(ctx context.Context, matchID string) (portalapi.MapBanSession, error) {
		if err := sess.EnsureFresh(ctx); err != nil {
			return portalapi.MapBanSession{}, err
		}
		return api.GetMapBanSession(ctx, matchID, sess.AccessToken())
	}, logger)
	defer rt.Shutdown()

	dispatcher := dispatch.New(api, rt, notifier, sess.AccessToken, logger)

	// The daemon's own view: everything the worker relays also feeds the
	// local router, alongside any views attached over the websocket.
	local := relay.NewViewConn()
	worker.Attach(local)
	go func() {
		for msg := range local.Out {
			if msg.Type == relay.MsgEvent && msg.Event != nil {
				rt.Apply(ctx, *msg.Event)
			}
		}
	}()
	defer worker.Detach(local.ID)

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.Handle("/push", logged(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		raw, err := readBody(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := worker.HandlePush(r.Context(), raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})))

	mux.Handle("/relay/ws", logged(relay.AttachHandler(logger, worker)))

	mux.Handle("/action", logged(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Action string            `json:"action"`
			Data   map[string]string `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed action request", http.StatusBadRequest)
			return
		}
		if err := sess.EnsureFresh(r.Context()); err != nil {
			logger.WithError(err).Warn("token refresh before action failed")
		}
		if err := dispatcher.HandleAction(r.Context(), req.Action, req.Data); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})))

	mux.Handle("/state", logged(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rt.Snapshot())
	})))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := ":" + getEnv("PORT", "8080")
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server exited")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown incomplete")
	}
}

// readBody caps push payloads at 64 KiB; FCM messages are far smaller.
func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > 64*1024 {
		return nil, errors.New("push payload too large")
	}
	return raw, nil
}
