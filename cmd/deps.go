package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clinicops/clinic-console/internal"
	"github.com/clinicops/clinic-console/internal/appointments"
	"github.com/clinicops/clinic-console/internal/billing"
	"github.com/clinicops/clinic-console/internal/patients"
	"github.com/clinicops/clinic-console/internal/session"
	"github.com/clinicops/clinic-console/internal/transport"
	"github.com/clinicops/clinic-console/pkg/logger"
)

type Dependencies struct {
	Config       *internal.Config
	Logger       *slog.Logger
	Store        *session.SQLiteStore
	API          *transport.Client
	Session      *session.Facade
	Patients     *patients.Service
	Appointments *appointments.Service
	Billing      *billing.Service
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	storePath, err := config.Storage.SessionPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session store path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	store, err := session.OpenStore(storePath, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	api, err := transport.NewClient(transport.Config{
		BaseURL:        config.API.BaseURL,
		RequestTimeout: config.API.RequestTimeout,
	}, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	manager := session.NewManager(api, store, lg)
	facade := session.NewFacade(manager, session.NavigatorFunc(func() {
		fmt.Println("Signed out. Run `clinic-console login` to sign in again.")
	}), lg)

	// One-time startup restore of the last-known user.
	facade.Restore(ctx)

	return &Dependencies{
		Config:       config,
		Logger:       lg,
		Store:        store,
		API:          api,
		Session:      facade,
		Patients:     patients.NewService(api, lg),
		Appointments: appointments.NewService(api, lg),
		Billing:      billing.NewService(api, lg),
	}, nil
}

// runWithDeps wraps a command body with dependency setup and a bounded
// request context.
func runWithDeps(run func(ctx context.Context, deps *Dependencies) error) error {
	ctx, cancel := internal.WithTimeout(context.Background(), 0)
	defer cancel()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return err
	}
	return run(ctx, deps)
}
