package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ftplog-ingest/internal/config"
	"github.com/sells-group/ftplog-ingest/internal/etl"
	"github.com/sells-group/ftplog-ingest/internal/ingest"
	"github.com/sells-group/ftplog-ingest/internal/monitoring"
	"github.com/sells-group/ftplog-ingest/internal/objstore"
	"github.com/sells-group/ftplog-ingest/internal/store"
)

// appEnv holds the initialized store, object store, and companions
// needed by the process/watch/serve/etl commands.
type appEnv struct {
	Store    store.Store
	ObjStore ingest.ObjectStore
	Runner   *etl.Runner
	Alerter  *monitoring.Alerter
	Monitor  *monitoring.Monitor
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	tables := store.Tables{
		Base:    cfg.Ingest.BaseTable,
		Archive: cfg.Ingest.ArchiveTable,
		Ledger:  cfg.Ingest.LedgerTable,
	}

	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL, tables)
	case "postgres", "":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, tables, &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv sets up the store and object store and builds the companion
// subsystems. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	obj, err := objstore.New(cfg.ObjectStore)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	alerter := monitoring.NewAlerter(cfg.Monitoring)

	return &appEnv{
		Store:    st,
		ObjStore: obj,
		Runner:   etl.NewRunner(st, cfg.ETL.ScriptPath),
		Alerter:  alerter,
		Monitor:  monitoring.NewMonitor(st, alerter),
	}, nil
}

// processorFor builds the ingest processor for one profile.
func (e *appEnv) processorFor(p config.Profile) *ingest.Processor {
	return ingest.NewProcessor(e.ObjStore, e.Store, e.Store, ingest.Options{
		Prefix:       p.Prefix,
		Suffix:       p.Suffix,
		BaseTable:    p.BaseTable,
		ArchiveTable: p.ArchiveTable,
	})
}

// defaultProfile derives a profile from the top-level ingest config.
func defaultProfile() config.Profile {
	return config.Profile{
		Name:         "default",
		Bucket:       cfg.Ingest.Bucket,
		Prefix:       cfg.Ingest.Prefix,
		Suffix:       cfg.Ingest.Suffix,
		BaseTable:    cfg.Ingest.BaseTable,
		ArchiveTable: cfg.Ingest.ArchiveTable,
	}
}

// resolveProfile picks the named profile from the profiles file, or the
// default profile when name is empty.
func resolveProfile(name string) (config.Profile, error) {
	if name == "" {
		return defaultProfile(), nil
	}
	if cfg.Ingest.ProfilesPath == "" {
		return config.Profile{}, eris.New("ingest.profiles_path is not configured")
	}
	profiles, err := config.LoadProfiles(cfg.Ingest.ProfilesPath, cfg.Ingest)
	if err != nil {
		return config.Profile{}, err
	}
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return config.Profile{}, eris.Errorf("profile %q not found in %s", name, cfg.Ingest.ProfilesPath)
}
