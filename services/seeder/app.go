package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"afterseed/pkg/bus"
	"afterseed/pkg/db"
	gos3 "afterseed/pkg/s3"
	"afterseed/pkg/seed"
	"afterseed/pkg/telemetry"
)

// StreamName is the JetStream stream that captures applied-seeder events.
const StreamName = "AFTERSEED"

var (
	_ seed.ObjectStore = (*gos3.Client)(nil)
	_ seed.Notifier    = (*bus.Bus)(nil)
)

// App wires configuration to the seed engine and its backing services.
type App struct {
	cfg Config
	log zerolog.Logger
	now func() time.Time

	orm     *gorm.DB
	store   *db.Store
	ledger  *db.Ledger
	repo    seed.Repository
	bus     *bus.Bus
	metrics *telemetry.Metrics
}

// Open connects to the database, installs the ledger table and prepares the
// seeder repository and optional event bus.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*App, error) {
	driver, err := cfg.Driver()
	if err != nil {
		return nil, err
	}

	orm, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app := &App{cfg: cfg, log: log, now: time.Now, orm: orm}

	if err := app.init(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	if err := db.Migrate(ctx, a.orm, a.log); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	var err error
	if a.store, err = db.NewStore(a.orm, db.DefaultTimeout); err != nil {
		return err
	}
	if a.ledger, err = db.NewLedger(a.orm, db.DefaultTimeout); err != nil {
		return err
	}
	if a.repo, err = a.openRepository(ctx); err != nil {
		return err
	}

	if a.cfg.NATSURL != "" {
		a.bus, err = bus.New(a.cfg.NATSURL, nats.Name("afterseed"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		if err := a.bus.EnsureStream(StreamName, a.cfg.Subject); err != nil {
			return fmt.Errorf("ensure stream %s: %w", StreamName, err)
		}
	}

	if a.cfg.MetricsFile != "" {
		a.metrics = telemetry.NewMetrics()
	}
	return nil
}

func (a *App) openRepository(ctx context.Context) (seed.Repository, error) {
	if a.cfg.S3Bucket != "" {
		client, err := gos3.NewClientFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return seed.NewBucketRepository(client, a.cfg.S3Bucket, a.cfg.S3Prefix)
	}

	repo := seed.NewDirRepository(a.cfg.Path)
	if err := repo.Ensure(); err != nil {
		return nil, fmt.Errorf("create seeder directory: %w", err)
	}
	return repo, nil
}

// Close releases the bus and database connections.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	a.bus.Close()
	if a.orm == nil {
		return nil
	}
	return db.Close(a.orm)
}

// DB exposes the underlying handle.
func (a *App) DB() *gorm.DB { return a.orm }

func (a *App) options() []seed.Option {
	opts := []seed.Option{seed.WithLogger(a.log), seed.WithClock(a.now)}
	if a.bus != nil {
		opts = append(opts, seed.WithNotifier(a.bus, a.cfg.Subject))
	}
	return opts
}

// Seed applies pending seeders for tag.
func (a *App) Seed(ctx context.Context, tag *string) (*seed.Report, error) {
	exec, err := seed.NewExecutor(a.repo, a.store, a.store, a.ledger, a.options()...)
	if err != nil {
		return nil, err
	}
	report, err := exec.Run(ctx, tag)
	a.observe(report)
	return report, err
}

func (a *App) observe(report *seed.Report) {
	if a.metrics == nil || report == nil {
		return
	}
	a.metrics.Observe(report)
	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.log.Warn().Err(err).Str("path", a.cfg.MetricsFile).Msg("write metrics")
	}
}

// Deploy runs one seed pass per configured tag, in order. A tag that aborts
// or fails does not stop later tags; every failure is returned joined. With
// no tags configured it only warns.
func (a *App) Deploy(ctx context.Context) ([]*seed.Report, error) {
	if len(a.cfg.Tags) == 0 {
		a.log.Warn().Msg("no tags available")
		return nil, nil
	}

	var (
		reports []*seed.Report
		errs    []error
	)
	for _, tag := range a.cfg.Tags {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		a.log.Info().Str("tag", tag).Msg("deploying tag")
		report, err := a.Seed(ctx, &tag)
		if report != nil {
			reports = append(reports, report)
		}
		if err == nil {
			err = report.Err()
		}
		if err != nil {
			a.log.Error().Err(err).Str("tag", tag).Msg("tag failed")
			errs = append(errs, fmt.Errorf("tag %q: %w", tag, err))
		}
	}
	return reports, errors.Join(errs...)
}

func (a *App) generator() (*seed.Generator, error) {
	return seed.NewGenerator(a.repo, a.store, a.store, a.options()...)
}

// Generate snapshots table into a new seeder, asking p which columns and ids
// to include.
func (a *App) Generate(ctx context.Context, table string, tag *string, p *Prompter) (*seed.Generated, error) {
	gen, err := a.generator()
	if err != nil {
		return nil, err
	}
	return gen.Generate(ctx, seed.GenerateRequest{Table: table, Tag: tag, Columns: p, Range: p})
}

// Placeholder writes an example seeder for table.
func (a *App) Placeholder(ctx context.Context, table string, tag *string) (string, error) {
	gen, err := a.generator()
	if err != nil {
		return "", err
	}
	return gen.Placeholder(ctx, table, tag)
}

// Status lists seeders alongside their ledger state.
func (a *App) Status(ctx context.Context) ([]seed.StatusRow, error) {
	return seed.Status(ctx, a.repo, a.ledger)
}

// Watch invokes fn for every applied-seeder event until ctx is done.
func (a *App) Watch(ctx context.Context, durable string, fn func(context.Context, seed.AppliedEvent) error) error {
	if a.bus == nil {
		return errors.New("NATS_URL is required to watch events")
	}
	sub, err := a.bus.Subscribe(ctx, a.cfg.Subject, durable, func(ctx context.Context, data []byte) error {
		evt, err := decodeEvent(data)
		if err != nil {
			a.log.Error().Err(err).Msg("decode applied event")
			return nil
		}
		return fn(ctx, evt)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Close()
}
