package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the ledger operations. Methods accept context.Context for
// cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RecordDispatch inserts a dispatch record and sets its ID.
	RecordDispatch(ctx context.Context, dispatch *Dispatch) error

	// RecordDelivery inserts the outcome of one target send.
	RecordDelivery(ctx context.Context, delivery *Delivery) error

	// RecentDispatches returns the most recent dispatches, newest first.
	RecentDispatches(ctx context.Context, limit int) ([]Dispatch, error)

	// RunMaintenance performs ledger maintenance (VACUUM).
	RunMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) RecordDispatch(ctx context.Context, dispatch *Dispatch) error {
	if dispatch == nil {
		return fmt.Errorf("cannot record nil dispatch")
	}
	if dispatch.Holiday == "" {
		return fmt.Errorf("dispatch must name a holiday")
	}
	if dispatch.CreatedAt.IsZero() {
		dispatch.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO dispatches (created_at, holiday, blessing, image_path, trigger_kind)
		VALUES (:created_at, :holiday, :blessing, :image_path, :trigger_kind)`, dispatch)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record dispatch", "holiday", dispatch.Holiday, "error", err)
		return fmt.Errorf("failed to record dispatch: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read dispatch id: %w", err)
	}
	dispatch.ID = uint(id)
	return nil
}

func (s *sqlxStore) RecordDelivery(ctx context.Context, delivery *Delivery) error {
	if delivery == nil {
		return fmt.Errorf("cannot record nil delivery")
	}
	if delivery.DispatchID == 0 {
		return fmt.Errorf("delivery must reference a dispatch")
	}
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO deliveries (dispatch_id, created_at, platform, kind, target_id, status, error)
		VALUES (:dispatch_id, :created_at, :platform, :kind, :target_id, :status, :error)`, delivery)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record delivery", "dispatch_id", delivery.DispatchID, "target_id", delivery.TargetID, "error", err)
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read delivery id: %w", err)
	}
	delivery.ID = uint(id)
	return nil
}

func (s *sqlxStore) RecentDispatches(ctx context.Context, limit int) ([]Dispatch, error) {
	if limit <= 0 {
		limit = 10
	}

	var dispatches []Dispatch
	err := s.db.SelectContext(ctx, &dispatches, `
		SELECT id, created_at, holiday, blessing, image_path, trigger_kind
		FROM dispatches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatches: %w", err)
	}
	return dispatches, nil
}

func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger maintenance completed")
	return nil
}
