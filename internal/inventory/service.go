package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/cartmax/backend-store/internal/db"
)

// Movement types recorded in the stock ledger.
const (
	MovementSale       = "sale"
	MovementRestock    = "restock"
	MovementCorrection = "correction"
)

// Querier captures the database methods required by the inventory service.
type Querier interface {
	AdjustProductStock(ctx context.Context, id pgtype.UUID, change int32) (int32, error)
	InsertStockMovement(ctx context.Context, arg db.InsertStockMovementParams) error
}

// Service keeps the product stock counter and its audit ledger in step.
// Stock may go negative on oversell; the movement log is what lets an
// operator reconcile it later.
type Service struct {
	Q   Querier
	Log zerolog.Logger
}

// RecordSale decrements stock for one ordered line and logs the movement.
func (s *Service) RecordSale(ctx context.Context, productID string, qty int32, orderRef string) error {
	if s == nil || s.Q == nil {
		return errors.New("inventory service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive, got %d", qty)
	}
	return s.apply(ctx, productID, -qty, MovementSale, orderRef)
}

// Restock increments stock and logs the movement.
func (s *Service) Restock(ctx context.Context, productID string, qty int32, reference string) error {
	if s == nil || s.Q == nil {
		return errors.New("inventory service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive, got %d", qty)
	}
	return s.apply(ctx, productID, qty, MovementRestock, reference)
}

func (s *Service) apply(ctx context.Context, productID string, change int32, movement, reference string) error {
	pID, err := toUUID(productID)
	if err != nil {
		return fmt.Errorf("parse product id: %w", err)
	}
	stock, err := s.Q.AdjustProductStock(ctx, pID, change)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	ref := pgtype.Text{}
	if reference != "" {
		ref = pgtype.Text{String: reference, Valid: true}
	}
	if err := s.Q.InsertStockMovement(ctx, db.InsertStockMovementParams{
		ProductID:    pID,
		Change:       change,
		MovementType: movement,
		Reference:    ref,
	}); err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}
	if stock < 0 {
		s.Log.Warn().Str("product_id", productID).Int32("stock", stock).Msg("stock went negative")
	}
	return nil
}

func toUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}
