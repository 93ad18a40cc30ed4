package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/cache"
	"github.com/dmitrijs2005/donorlink/internal/client/client"
	"github.com/dmitrijs2005/donorlink/internal/client/config"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/realtime"
	"github.com/dmitrijs2005/donorlink/internal/client/services"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	_ "modernc.org/sqlite"
)

const wsPingInterval = 30 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	donors    services.DonorService
	requests  services.RequestService
	stats     client.StatsSource
	snapshots *services.Snapshots
	registry  *prometheus.Registry
	live      bool

	donorList   *services.ListQuery[models.Donor]
	requestList *services.ListQuery[models.Request]
	statsQuery  *services.StatsQuery

	reader *bufio.Reader
	out    io.Writer

	closers []func() error
}

// NewApp wires the remote store, the change stream and the local snapshot
// database selected by c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(os.Stderr, logging.Options{
		Backend: c.LogBackend,
		Format:  c.LogFormat,
		Level:   c.LogLevel,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		config:   c,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}

	db, err := client.InitDatabase(ctx, c.SnapshotDB)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.SnapshotDB, "error", err)
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	repos := client.NewRepositories(db)
	a.snapshots = services.NewSnapshots(repos.Snapshots, repos.Metadata, logger)

	donors, requests, stats, err := a.openRemote(ctx)
	if err != nil {
		a.shutdown()
		return nil, err
	}
	a.stats = stats

	source := a.openSource()
	a.live = source != nil

	opts := services.Options{
		Source:  source,
		Logger:  logger,
		Metrics: cache.NewMetrics(a.registry),
	}
	a.donors = services.NewDonorService(donors, opts)
	a.requests = services.NewRequestService(requests, opts)

	a.restore(ctx)
	return a, nil
}

func (a *App) openRemote(ctx context.Context) (client.DonorAccessor, client.RequestAccessor, client.StatsSource, error) {
	if a.config.Remote == config.RemotePostgres {
		db, err := client.OpenPostgres(ctx, a.config.DatabaseDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		return client.NewPostgresDonors(db), client.NewPostgresRequests(db), client.NewPostgresStats(db), nil
	}

	rc := client.NewRESTClient(a.config.RESTURL, a.config.APIKey, a.config.RequestTimeout)
	return client.NewRESTDonors(rc), client.NewRESTRequests(rc), client.NewRESTStats(rc), nil
}

func (a *App) openSource() realtime.Source {
	switch a.config.Realtime {
	case config.RealtimeWebsocket:
		header := http.Header{}
		if a.config.APIKey != "" {
			header.Set(common.APIKeyHeaderName, a.config.APIKey)
		}
		return &realtime.WebsocketSource{
			URL:          a.config.RealtimeURL,
			Header:       header,
			PingInterval: wsPingInterval,
			Logger:       a.logger,
		}
	case config.RealtimeRedis:
		rdb := redis.NewClient(&redis.Options{Addr: a.config.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		return &realtime.RedisSource{Client: rdb, Prefix: a.config.RedisPrefix, Logger: a.logger}
	case config.RealtimePostgres:
		return &realtime.PostgresSource{DSN: a.config.DatabaseDSN, Logger: a.logger}
	}
	return nil
}

// restore seeds the caches from the last saved snapshot so lists show up
// before the first fetch completes.
func (a *App) restore(ctx context.Context) {
	if at, err := services.RestoreSnapshot(ctx, a.snapshots, a.donors.Store()); err != nil {
		a.logger.Warn(ctx, "donor snapshot not restored", "error", err)
	} else if !at.IsZero() {
		a.logger.Info(ctx, "restored donor snapshot", "taken_at", at)
	}
	if at, err := services.RestoreSnapshot(ctx, a.snapshots, a.requests.Store()); err != nil {
		a.logger.Warn(ctx, "request snapshot not restored", "error", err)
	} else if !at.IsZero() {
		a.logger.Info(ctx, "restored request snapshot", "taken_at", at)
	}
}

// Run keeps the donor and request lists synchronized while the REPL is
// active and saves them on exit.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)

	a.donorList = a.donors.List(ctx)
	a.requestList = a.requests.List(ctx)
	a.statsQuery = services.OpenStats(ctx, a.stats, a.config.StatsInterval, a.logger)

	printlnFn("Welcome to DonorLink. Type 'help' for the list of commands.")
	runREPL(ctx, a, a.status, a.reader)
}

// Close stops all queries, saves snapshots of the synchronized lists and
// releases connections.
func (a *App) Close(ctx context.Context) {
	if a.donorList != nil {
		_ = a.donorList.Close()
	}
	if a.requestList != nil {
		_ = a.requestList.Close()
	}
	if a.statsQuery != nil {
		a.statsQuery.Close()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.RequestTimeout)
	defer cancel()
	if err := services.SaveSnapshot(ctx, a.snapshots, a.donors.Store()); err != nil {
		a.logger.Warn(ctx, "donor snapshot not saved", "error", err)
	}
	if err := services.SaveSnapshot(ctx, a.snapshots, a.requests.Store()); err != nil {
		a.logger.Warn(ctx, "request snapshot not saved", "error", err)
	}

	a.shutdown()
}

func (a *App) shutdown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func (a *App) status() string {
	mode := "polling"
	if a.live {
		mode = "live"
	}
	if a.donorList == nil || a.requestList == nil {
		return mode
	}
	return fmt.Sprintf("%s, %d donors, %d requests", mode,
		len(a.donorList.Result().Data), len(a.requestList.Result().Data))
}

// withTimeout bounds a single command by the configured request timeout.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
