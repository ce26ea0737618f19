package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/calc-tracker/internal/apperror"
	"github.com/sakif/calc-tracker/internal/model"
)

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$04$hash",
		Active:       true,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.LastLoginAt != nil {
		t.Error("fresh user should have no last login")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	dup := &model.User{Username: "alice", Email: "other@example.com", Active: true}
	err := db.CreateUser(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate username: error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	dup := &model.User{Username: "alice2", Email: "alice@example.com", Active: true}
	err := db.CreateUser(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate email: error = %v, want ErrConflict", err)
	}
}

func TestUserGetByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice")

	got, err := db.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
	if got.PasswordHash == "" {
		t.Error("GetUserByUsername() must return the stored hash for login verification")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUserTouchLastLogin(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice")

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if err := db.TouchLastLogin(context.Background(), created.ID, at); err != nil {
		t.Fatalf("TouchLastLogin() error = %v", err)
	}

	got, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastLoginAt == nil {
		t.Fatal("LastLoginAt still nil after TouchLastLogin")
	}
	if !got.LastLoginAt.Equal(at) {
		t.Errorf("LastLoginAt = %v, want %v", got.LastLoginAt, at)
	}
}

func TestUserUpsertGitHub_InsertThenUpdate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		GitHubID: 4242,
		Username: "octo",
		Email:    "octo@example.com",
	}
	if err := db.UpsertGitHub(context.Background(), user); err != nil {
		t.Fatalf("UpsertGitHub() insert error = %v", err)
	}
	firstID := user.ID
	if firstID == "" {
		t.Fatal("UpsertGitHub() did not assign an ID")
	}

	// Second login with a changed email keeps the internal ID.
	again := &model.User{
		GitHubID: 4242,
		Username: "octo",
		Email:    "new@example.com",
	}
	if err := db.UpsertGitHub(context.Background(), again); err != nil {
		t.Fatalf("UpsertGitHub() update error = %v", err)
	}
	if again.ID != firstID {
		t.Errorf("UpsertGitHub() changed the internal ID: %q → %q", firstID, again.ID)
	}

	got, _ := db.GetUserByID(context.Background(), firstID)
	if got.Email != "new@example.com" {
		t.Errorf("Email = %q, want refreshed email", got.Email)
	}
}

func TestUserUpsertGitHub_UsernameCollision(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "octo") // local password account squatting the name

	user := &model.User{GitHubID: 4242, Username: "octo", Email: "octo@github.example"}
	if err := db.UpsertGitHub(context.Background(), user); err != nil {
		t.Fatalf("UpsertGitHub() should disambiguate on collision, got %v", err)
	}
	if user.Username == "octo" {
		t.Error("UpsertGitHub() did not disambiguate the colliding username")
	}
}

func TestUserDelete_CascadesToCalculations(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	created := createTestCalculation(t, db, alice.ID, "add", []float64{1, 2}, 3)

	// Direct SQL delete: the schema's ON DELETE CASCADE must take the
	// calculation history with the user.
	if _, err := db.conn.Exec(`DELETE FROM users WHERE id = ?`, alice.ID); err != nil {
		t.Fatalf("deleting user: %v", err)
	}

	var count int
	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM calculations WHERE id = ?`, created.ID,
	).Scan(&count); err != nil {
		t.Fatalf("counting calculations: %v", err)
	}
	if count != 0 {
		t.Errorf("calculation survived user deletion, count = %d", count)
	}
}
