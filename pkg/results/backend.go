package results

import (
	"context"

	"github.com/logflow/procmine/pkg/config"
	"github.com/logflow/procmine/pkg/errors"
)

// Backend defines the interface for report storage backends.
type Backend interface {
	// Save persists a report, replacing any report with the same ID.
	Save(ctx context.Context, r *Report) error

	// Load retrieves a report by ID.
	Load(ctx context.Context, id string) (*Report, error)

	// Delete removes a report. Deleting a missing report is not an error.
	Delete(ctx context.Context, id string) error

	// List returns all reports, newest first.
	List(ctx context.Context) ([]*Report, error)

	// Name returns the backend name for logging/debugging.
	Name() string
}

// New creates the backend selected by cfg. The "none" backend discards
// reports.
func New(ctx context.Context, cfg config.ResultsConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "none":
		return Discard{}, nil
	case "local":
		return NewLocalBackend(cfg.Dir)
	case "redis":
		rc := DefaultRedisConfig(cfg.Redis.Address)
		rc.Password = cfg.Redis.Password
		rc.Database = cfg.Redis.Database
		if cfg.Redis.Prefix != "" {
			rc.Prefix = cfg.Redis.Prefix
		}
		rc.TTL = cfg.Redis.TTL
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		return NewRedisBackend(ctx, rc)
	case "s3":
		sc := DefaultS3Config(cfg.S3.Bucket)
		if cfg.S3.Prefix != "" {
			sc.Prefix = cfg.S3.Prefix
		}
		sc.Region = cfg.S3.Region
		sc.Endpoint = cfg.S3.Endpoint
		sc.UsePathStyle = cfg.S3.UsePathStyle
		if cfg.Timeout > 0 {
			sc.Timeout = cfg.Timeout
		}
		return NewS3Backend(ctx, sc)
	default:
		return nil, errors.New(errors.CodeInvalidConfig, "unsupported results backend").
			WithContext("backend", cfg.Backend)
	}
}

// Discard is a backend that keeps nothing.
type Discard struct{}

// Save does nothing.
func (Discard) Save(ctx context.Context, r *Report) error { return nil }

// Load always reports the ID as missing.
func (Discard) Load(ctx context.Context, id string) (*Report, error) {
	return nil, errors.ReportNotFound(id)
}

// Delete does nothing.
func (Discard) Delete(ctx context.Context, id string) error { return nil }

// List returns no reports.
func (Discard) List(ctx context.Context) ([]*Report, error) { return nil, nil }

// Name returns "none".
func (Discard) Name() string { return "none" }
