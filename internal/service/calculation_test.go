package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/calc-tracker/internal/apperror"
	"github.com/sakif/calc-tracker/internal/calculation"
	"github.com/sakif/calc-tracker/internal/model"
	"github.com/sakif/calc-tracker/internal/repository"
)

// mockCalcRepo is an in-memory CalculationRepository.
// Like the real one, every lookup is owner-scoped: the wrong owner sees
// NotFound, never the record.
type mockCalcRepo struct {
	calcs  map[string]*model.Calculation
	nextID int
}

func newMockCalcRepo() *mockCalcRepo {
	return &mockCalcRepo{calcs: make(map[string]*model.Calculation)}
}

func (m *mockCalcRepo) Create(_ context.Context, calc *model.Calculation) error {
	m.nextID++
	calc.ID = fmt.Sprintf("mock-%d", m.nextID)
	now := time.Now().UTC()
	calc.CreatedAt = now
	calc.UpdatedAt = now
	stored := *calc
	m.calcs[calc.ID] = &stored
	return nil
}

func (m *mockCalcRepo) GetByID(_ context.Context, id, ownerID string) (*model.Calculation, error) {
	calc, ok := m.calcs[id]
	if !ok || calc.UserID != ownerID {
		return nil, apperror.NotFound("calculation", id)
	}
	result := *calc
	return &result, nil
}

func (m *mockCalcRepo) ListByUser(_ context.Context, ownerID string, opts repository.ListOptions) ([]model.Calculation, error) {
	result := make([]model.Calculation, 0, len(m.calcs))
	for _, c := range m.calcs {
		if c.UserID == ownerID {
			result = append(result, *c)
		}
	}
	if opts.Offset >= len(result) {
		return []model.Calculation{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *mockCalcRepo) AllByUser(_ context.Context, ownerID string) ([]model.Calculation, error) {
	result := make([]model.Calculation, 0, len(m.calcs))
	for _, c := range m.calcs {
		if c.UserID == ownerID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCalcRepo) Update(_ context.Context, calc *model.Calculation) error {
	existing, ok := m.calcs[calc.ID]
	if !ok || existing.UserID != calc.UserID {
		return apperror.NotFound("calculation", calc.ID)
	}
	calc.UpdatedAt = time.Now().UTC()
	stored := *calc
	m.calcs[calc.ID] = &stored
	return nil
}

func (m *mockCalcRepo) Delete(_ context.Context, id, ownerID string) error {
	existing, ok := m.calcs[id]
	if !ok || existing.UserID != ownerID {
		return apperror.NotFound("calculation", id)
	}
	delete(m.calcs, id)
	return nil
}

func newTestCalcService(t *testing.T) (*CalculationService, *mockCalcRepo) {
	t.Helper()
	repo := newMockCalcRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewCalculationService(repo, logger), repo
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCalcCreate_Success(t *testing.T) {
	svc, _ := newTestCalcService(t)

	calc, err := svc.Create(context.Background(), "user-1", "add", []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if calc.ID == "" {
		t.Error("expected calculation to have an ID")
	}
	if calc.Result != 6 {
		t.Errorf("Result = %v, want 6", calc.Result)
	}
	if calc.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", calc.UserID, "user-1")
	}
}

func TestCalcCreate_UnknownType(t *testing.T) {
	svc, _ := newTestCalcService(t)

	_, err := svc.Create(context.Background(), "user-1", "cubert", []float64{3})
	if err == nil {
		t.Fatal("Create() should fail for an unknown operation")
	}
	// Both the generic validation kind and the specific cause must match.
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if !errors.Is(err, calculation.ErrUnknownOperation) {
		t.Errorf("error = %v, want ErrUnknownOperation on the chain", err)
	}
}

func TestCalcCreate_DivisionByZero(t *testing.T) {
	svc, _ := newTestCalcService(t)

	_, err := svc.Create(context.Background(), "user-1", "divide", []float64{5, 0})
	if !errors.Is(err, calculation.ErrDivisionByZero) {
		t.Errorf("error = %v, want ErrDivisionByZero on the chain", err)
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCalcCreate_MissingUser(t *testing.T) {
	svc, _ := newTestCalcService(t)

	_, err := svc.Create(context.Background(), "", "add", []float64{1})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// GET / LIST TESTS
// =========================================================================

func TestCalcGetByID_OwnerScoped(t *testing.T) {
	svc, _ := newTestCalcService(t)

	created, err := svc.Create(context.Background(), "user-1", "multiply", []float64{2, 3})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	if _, err := svc.GetByID(context.Background(), created.ID, "user-1"); err != nil {
		t.Errorf("owner GetByID() error = %v", err)
	}

	_, err = svc.GetByID(context.Background(), created.ID, "user-2")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("cross-user GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestCalcList_OnlyOwnRecords(t *testing.T) {
	svc, _ := newTestCalcService(t)

	svc.Create(context.Background(), "user-1", "add", []float64{1})
	svc.Create(context.Background(), "user-1", "add", []float64{2})
	svc.Create(context.Background(), "user-2", "add", []float64{3})

	calcs, err := svc.List(context.Background(), "user-1", 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(calcs) != 2 {
		t.Errorf("List() returned %d records, want 2", len(calcs))
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestCalcUpdateOperands_Recomputes(t *testing.T) {
	svc, _ := newTestCalcService(t)

	created, err := svc.Create(context.Background(), "user-1", "subtract", []float64{10, 3})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}
	if created.Result != 7 {
		t.Fatalf("setup: Result = %v, want 7", created.Result)
	}

	updated, err := svc.UpdateOperands(context.Background(), created.ID, "user-1", []float64{10, 3, 2})
	if err != nil {
		t.Fatalf("UpdateOperands() error = %v", err)
	}

	if updated.Result != 5 {
		t.Errorf("Result = %v, want recomputed 5", updated.Result)
	}
	if updated.Type != "subtract" {
		t.Errorf("Type = %q — the type tag must be immutable", updated.Type)
	}
}

func TestCalcUpdateOperands_InvalidForType(t *testing.T) {
	svc, _ := newTestCalcService(t)

	created, _ := svc.Create(context.Background(), "user-1", "divide", []float64{8, 2})

	// The edit re-validates against divide's rules: exactly 2 operands,
	// non-zero divisor.
	if _, err := svc.UpdateOperands(context.Background(), created.ID, "user-1", []float64{8, 0}); !errors.Is(err, calculation.ErrDivisionByZero) {
		t.Errorf("zero divisor: error = %v, want ErrDivisionByZero", err)
	}
	if _, err := svc.UpdateOperands(context.Background(), created.ID, "user-1", []float64{8}); !errors.Is(err, calculation.ErrInvalidOperandCount) {
		t.Errorf("one operand: error = %v, want ErrInvalidOperandCount", err)
	}

	// Failed edits must not have touched the stored record.
	got, _ := svc.GetByID(context.Background(), created.ID, "user-1")
	if got.Result != 4 {
		t.Errorf("stored Result = %v after failed edits, want 4", got.Result)
	}
}

func TestCalcUpdateOperands_WrongOwner(t *testing.T) {
	svc, _ := newTestCalcService(t)

	created, _ := svc.Create(context.Background(), "user-1", "add", []float64{1, 2})

	_, err := svc.UpdateOperands(context.Background(), created.ID, "user-2", []float64{5, 5})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("cross-user UpdateOperands() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestCalcDelete(t *testing.T) {
	svc, _ := newTestCalcService(t)

	created, _ := svc.Create(context.Background(), "user-1", "add", []float64{1})
	if err := svc.Delete(context.Background(), created.ID, "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := svc.GetByID(context.Background(), created.ID, "user-1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}
}

func TestCalcDelete_WrongOwner(t *testing.T) {
	svc, _ := newTestCalcService(t)

	created, _ := svc.Create(context.Background(), "user-1", "add", []float64{1})
	if err := svc.Delete(context.Background(), created.ID, "user-2"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("cross-user Delete() error = %v, want ErrNotFound", err)
	}
}
