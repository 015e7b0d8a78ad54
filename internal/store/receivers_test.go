package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/odvoz/internal/db"
)

func TestReceiverLifecycle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	r, err := CreateReceiver(ctx, database, "Green Pickup", "Pickup@Example.com", "555", "hash")
	if err != nil {
		t.Fatalf("CreateReceiver: %v", err)
	}
	if r.Approved {
		t.Error("expected new receiver to be unapproved")
	}

	byEmail, err := GetReceiverByEmail(ctx, database, "pickup@example.com")
	if err != nil || byEmail == nil || byEmail.ID != r.ID {
		t.Fatalf("GetReceiverByEmail = (%v, %v)", byEmail, err)
	}

	if found, err := SetReceiverApproved(ctx, database, r.ID, true); err != nil || !found {
		t.Fatalf("SetReceiverApproved = (%v, %v)", found, err)
	}
	got, _ := GetReceiver(ctx, database, r.ID)
	if !got.Approved {
		t.Error("expected receiver to be approved")
	}

	UpdateReceiverPassword(ctx, database, r.ID, "newhash")
	got, _ = GetReceiver(ctx, database, r.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}

	list, _ := ListReceivers(ctx, database)
	if len(list) != 1 {
		t.Errorf("expected 1 receiver, got %d", len(list))
	}
}

func TestCreateReceiverDuplicateEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateReceiver(ctx, database, "A", "r@example.com", "1", "hash")
	_, err := CreateReceiver(ctx, database, "B", "r@example.com", "2", "hash")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestGetReceiverMissing(t *testing.T) {
	database := db.NewTestDB(t)

	r, err := GetReceiver(context.Background(), database, "nope")
	if err != nil {
		t.Fatalf("GetReceiver: %v", err)
	}
	if r != nil {
		t.Error("expected nil for missing receiver")
	}
}
