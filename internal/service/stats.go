package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/calc-tracker/internal/model"
	"github.com/sakif/calc-tracker/internal/repository"
)

// Summary is the read-only aggregate over one user's calculation history.
type Summary struct {
	// Total is the number of calculation records.
	Total int `json:"total"`
	// AverageOperands is the mean operand count per record; 0 when Total is 0.
	AverageOperands float64 `json:"averageOperands"`
	// Breakdown maps each operation tag actually present to its count.
	Breakdown map[string]int `json:"breakdown"`
	// MostUsedOperation is the tag with the highest count, or "" when there
	// are no records. See Summarize for the tie-break rule.
	MostUsedOperation string `json:"mostUsedOperation,omitempty"`
	// LastCalculationAt is the max creation timestamp in RFC3339, or nil
	// when there are no records.
	LastCalculationAt *string `json:"lastCalculationAt"`
}

// Summarize computes the summary over a record set.
//
// Pure function: no side effects, and every output is independent of the
// input order. The only place order could sneak in is the most-used tie —
// resolved by picking the lexicographically smallest tag among those at the
// maximum count, which depends on neither map iteration order nor record
// order.
func Summarize(calcs []model.Calculation) Summary {
	summary := Summary{
		Total:     len(calcs),
		Breakdown: make(map[string]int, 8),
	}
	if summary.Total == 0 {
		return summary
	}

	operandTotal := 0
	var latest time.Time
	for _, c := range calcs {
		operandTotal += len(c.Operands)
		summary.Breakdown[c.Type]++
		if c.CreatedAt.After(latest) {
			latest = c.CreatedAt
		}
	}

	summary.AverageOperands = float64(operandTotal) / float64(summary.Total)

	maxCount := 0
	for tag, count := range summary.Breakdown {
		switch {
		case count > maxCount:
			summary.MostUsedOperation = tag
			maxCount = count
		case count == maxCount && tag < summary.MostUsedOperation:
			summary.MostUsedOperation = tag
		}
	}

	formatted := latest.UTC().Format(time.RFC3339)
	summary.LastCalculationAt = &formatted

	return summary
}

// StatsService exposes the aggregation over the persisted records.
type StatsService struct {
	repo   repository.CalculationRepository
	logger *slog.Logger
}

func NewStatsService(repo repository.CalculationRepository, logger *slog.Logger) *StatsService {
	return &StatsService{
		repo:   repo,
		logger: logger,
	}
}

// ForUser loads the user's full history and summarizes it.
// A user with no records gets the well-defined empty summary, not an error.
func (s *StatsService) ForUser(ctx context.Context, userID string) (*Summary, error) {
	calcs, err := s.repo.AllByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load calculations for stats",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("loading calculations for stats: %w", err)
	}

	summary := Summarize(calcs)
	return &summary, nil
}
