// Package app assembles the service from configuration: storage, identity
// backend, uploads, the gRPC server and the HTTP gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
	"google.golang.org/grpc"

	apiv1 "skytrack/internal/api/v1"
	"skytrack/internal/auth"
	"skytrack/internal/config"
	"skytrack/internal/gateway"
	"skytrack/internal/handler"
	"skytrack/internal/identity"
	"skytrack/internal/identity/google"
	"skytrack/internal/logger"
	"skytrack/internal/metrics"
	"skytrack/internal/middleware"
	"skytrack/internal/pg"
	"skytrack/internal/slot"
	"skytrack/internal/store"
	"skytrack/internal/upload"
)

type App struct {
	cfg      *config.Config
	log      *logger.Logger
	Store    *store.Store
	Metrics  *metrics.Metrics
	Provider identity.Provider
	Uploader upload.Uploader
	Handler  *handler.Handler
	GRPC     *grpc.Server

	limiter *middleware.RateLimiter
	closers []func() error
}

// New wires every component. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log, Metrics: metrics.New()}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	var pool *pgxpool.Pool
	if cfg.Storage.DatabaseURL != "" {
		if err := Migrate(cfg.Storage.DatabaseURL, log); err != nil {
			return err
		}
		p, err := pg.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return err
		}
		a.onClose(func() error { p.Close(); return nil })
		pool = p
		log.Infow("connected to postgres")
	}

	slots, err := a.openSlots(ctx, pool)
	if err != nil {
		return err
	}
	a.Store = store.New(slots, log, store.WithObserver(a.Metrics.StoreOp))
	a.Metrics.WatchWorkspaces(a.Store.OpenCount)

	var refresh auth.RefreshStore = auth.NewMemoryRefreshStore()
	var accounts Accounts
	if pool != nil {
		db := pg.New(pool)
		refresh, accounts = db, db
	}
	hc := &http.Client{Timeout: 15 * time.Second}

	a.Provider, err = ProviderFor(ctx, cfg, slots, accounts, hc)
	if err != nil {
		return err
	}
	a.Uploader, err = UploaderFor(ctx, cfg)
	if err != nil {
		return err
	}
	log.Infow("backends selected",
		"identity", a.Provider.Name(),
		"storage", cfg.StorageBackend(),
		"uploads", a.Uploader.Name(),
	)

	sessions := auth.NewSessions(auth.NewIssuer(cfg.JWTSecret, cfg.AccessTTL), refresh, cfg.RefreshTTL)
	opts := []handler.Option{handler.WithUploader(a.Uploader)}
	if cfg.GoogleEnabled() {
		opts = append(opts, handler.WithGoogle(google.New(google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		}, oauth2.Endpoint{})))
	}
	a.Handler = handler.New(a.Store, a.Provider, sessions, log, opts...)

	a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	a.onClose(func() error { a.limiter.Close(); return nil })
	a.GRPC = grpc.NewServer(append(apiv1.ServerOptions(), grpc.ChainUnaryInterceptor(
		middleware.Metrics(a.Metrics),
		middleware.RateLimit(a.limiter),
		middleware.Auth(sessions.Issuer(), log),
	))...)
	apiv1.RegisterSkyTrackServer(a.GRPC, a.Handler)
	return nil
}

func (a *App) onClose(f func() error) { a.closers = append(a.closers, f) }

func (a *App) openSlots(ctx context.Context, pool *pgxpool.Pool) (slot.Slots, error) {
	s := a.cfg.Storage
	switch a.cfg.StorageBackend() {
	case config.StoragePostgres:
		if pool == nil {
			return nil, errors.New("postgres storage needs DATABASE_URL")
		}
		return pg.New(pool), nil
	case config.StorageRedis:
		r, err := slot.DialRedis(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB)
		if err != nil {
			return nil, err
		}
		a.onClose(r.Close)
		return r, nil
	case config.StorageDir:
		return slot.NewDir(s.DataDir)
	default:
		a.log.Warnw("using in-memory storage; data is lost on restart")
		return slot.NewMemory(), nil
	}
}

// Serve runs the gRPC server and the HTTP gateway until ctx is done or one
// of them fails.
func (a *App) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", ":"+a.cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	conn, err := gateway.Dial(fmt.Sprintf("localhost:%d", lis.Addr().(*net.TCPAddr).Port))
	if err != nil {
		lis.Close()
		return err
	}
	defer conn.Close()

	gw := gateway.New(conn, gateway.Config{
		Origins:   a.cfg.AllowedOrigins(),
		UploadDir: localUploadDir(a.Uploader),
		RPS:       a.cfg.RateLimit.RPS,
		Burst:     a.cfg.RateLimit.Burst,
	}, a.Metrics, a.log)

	errc := make(chan error, 2)
	go func() {
		a.log.Infow("grpc listening", "addr", lis.Addr().String())
		errc <- a.GRPC.Serve(lis)
	}()
	go func() {
		errc <- gw.Start(":" + a.cfg.HTTPPort)
	}()

	select {
	case <-ctx.Done():
	case err = <-errc:
		a.log.Errorw("server stopped", "error", err)
	}

	a.log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := gw.Shutdown(shutdownCtx); serr != nil {
		a.log.Warnw("gateway shutdown", "error", serr)
	}
	a.GRPC.GracefulStop()
	return err
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func localUploadDir(u upload.Uploader) string {
	if d, ok := u.(*upload.Dir); ok {
		return d.Root()
	}
	return ""
}

// Migrate applies pending schema migrations.
func Migrate(databaseURL string, log *logger.Logger) error {
	m, err := pg.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	changed, err := m.Up()
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if changed {
		log.Infow("migrations applied")
	}
	return nil
}

// Export reads one user's collections straight from storage, without
// starting anything else.
func Export(ctx context.Context, cfg *config.Config, log *logger.Logger, uid string) (store.Snapshot, error) {
	a := &App{cfg: cfg, log: log}
	defer a.Close()

	var pool *pgxpool.Pool
	if cfg.StorageBackend() == config.StoragePostgres {
		p, err := pg.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return store.Snapshot{}, err
		}
		a.onClose(func() error { p.Close(); return nil })
		pool = p
	}
	slots, err := a.openSlots(ctx, pool)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.New(slots, log).Export(ctx, uid)
}
