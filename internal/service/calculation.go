// Package service contains the business logic layer.
//
// Layering follows the usual chain: handlers parse HTTP and render JSON,
// services enforce the business rules, repositories talk to the database.
// Services accept primitives and return domain errors — they know nothing
// about HTTP, and handlers know nothing about SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/calc-tracker/internal/apperror"
	"github.com/sakif/calc-tracker/internal/calculation"
	"github.com/sakif/calc-tracker/internal/model"
	"github.com/sakif/calc-tracker/internal/repository"
)

const (
	// MaxOperands bounds request size; no operation needs more.
	MaxOperands      = 1000
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// CalculationService handles the calculation BREAD operations.
// Every method takes the acting user's ID and passes it down to the
// owner-scoped repository, so cross-user access dies at the query.
type CalculationService struct {
	repo   repository.CalculationRepository
	logger *slog.Logger
}

func NewCalculationService(repo repository.CalculationRepository, logger *slog.Logger) *CalculationService {
	return &CalculationService{
		repo:   repo,
		logger: logger,
	}
}

// invalidCalculation translates the calculation package's error kinds into
// validation AppErrors, keeping the original kind on the chain so callers
// (and tests) can still errors.Is against it.
func invalidCalculation(err error) error {
	field := "operands"
	if errors.Is(err, calculation.ErrUnknownOperation) {
		field = "type"
	}
	return apperror.InvalidInput(field, err)
}

// Create validates and persists a new calculation for the user.
//
// The heavy lifting is the factory's: calculation.New parses the tag,
// validates the operand count and computes the result. All four of its error
// kinds come back as validation errors (400s at the HTTP layer).
func (s *CalculationService) Create(ctx context.Context, userID, typeTag string, operands []float64) (*model.Calculation, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	if len(operands) > MaxOperands {
		return nil, apperror.ValidationFailed("operands",
			fmt.Sprintf("at most %d operands are supported", MaxOperands))
	}

	calc, err := calculation.New(strings.TrimSpace(typeTag), userID, operands)
	if err != nil {
		return nil, invalidCalculation(err)
	}

	if err := s.repo.Create(ctx, calc); err != nil {
		s.logger.Error("failed to create calculation",
			slog.String("userID", userID),
			slog.String("type", calc.Type),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating calculation: %w", err)
	}

	s.logger.Info("calculation created",
		slog.String("id", calc.ID),
		slog.String("userID", userID),
		slog.String("type", calc.Type),
	)

	return calc, nil
}

// GetByID retrieves one of the user's calculations.
// A record owned by someone else is indistinguishable from a missing one.
func (s *CalculationService) GetByID(ctx context.Context, id, userID string) (*model.Calculation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "calculation ID is required")
	}

	return s.repo.GetByID(ctx, id, userID)
}

// List returns the user's calculations, newest first.
// limit is clamped to 1-100 (default 20); offset floors at 0.
func (s *CalculationService) List(ctx context.Context, userID string, limit, offset int) ([]model.Calculation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	calcs, err := s.repo.ListByUser(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list calculations",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing calculations: %w", err)
	}

	return calcs, nil
}

// UpdateOperands replaces a calculation's operands and recomputes its result.
//
// The operation type is immutable: the edit re-runs the SAME variant's
// compute function over the new operands. There is deliberately no way to
// turn a divide into an add — create a new record for that.
func (s *CalculationService) UpdateOperands(ctx context.Context, id, userID string, operands []float64) (*model.Calculation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "calculation ID is required")
	}
	if len(operands) > MaxOperands {
		return nil, apperror.ValidationFailed("operands",
			fmt.Sprintf("at most %d operands are supported", MaxOperands))
	}

	calc, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	result, err := calculation.Compute(calculation.Operation(calc.Type), operands)
	if err != nil {
		return nil, invalidCalculation(err)
	}

	calc.Operands = append([]float64(nil), operands...)
	calc.Result = result

	if err := s.repo.Update(ctx, calc); err != nil {
		s.logger.Error("failed to update calculation",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating calculation: %w", err)
	}

	s.logger.Info("calculation updated",
		slog.String("id", calc.ID),
		slog.String("type", calc.Type),
	)

	return calc, nil
}

// Delete removes one of the user's calculations.
func (s *CalculationService) Delete(ctx context.Context, id, userID string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "calculation ID is required")
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.logger.Info("calculation deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}
