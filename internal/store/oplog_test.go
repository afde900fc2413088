package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hollis-dev/loam/internal/op"
)

func appendTestOps(t *testing.T, s *Store, count int, start time.Time) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	for i := 0; i < count; i++ {
		o, err := op.New(
			fmt.Sprintf("op-%04d", i),
			start.Add(time.Duration(i)*time.Second),
			"dev-a",
			op.TypeDeleteNote,
			op.DeleteNotePayload{NoteID: fmt.Sprintf("n-%d", i)},
		)
		if err != nil {
			t.Fatalf("op.New() failed: %v", err)
		}
		if err := AppendOperation(ctx, tx, o); err != nil {
			t.Fatalf("AppendOperation() failed: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
}

func TestOperations_AppendAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	appendTestOps(t, s, 3, start)

	ops, err := s.ListOperations(ctx)
	if err != nil {
		t.Fatalf("ListOperations() failed: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("listed %d operations, want 3", len(ops))
	}
	for i, o := range ops {
		if o.OperationID != fmt.Sprintf("op-%04d", i) {
			t.Errorf("ops[%d] = %s, want op-%04d", i, o.OperationID, i)
		}
		if o.Synced {
			t.Errorf("ops[%d] synced = true, nothing sets synced today", i)
		}
	}
}

func TestOperations_DuplicateIDRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	o, err := op.New("op-dup", time.Now().UTC(), "d", op.TypeDeleteNote, op.DeleteNotePayload{NoteID: "n"})
	if err != nil {
		t.Fatalf("op.New() failed: %v", err)
	}

	tx, _ := s.Begin(ctx)
	if err := AppendOperation(ctx, tx, o); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if err := AppendOperation(ctx, tx, o); err == nil {
		t.Error("duplicate operation id should be rejected")
	}
	tx.Rollback()
}

func TestPurge_LocalOnly_KeepsMostRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	appendTestOps(t, s, 1050, start)

	deleted, err := s.PurgeOperations(ctx, op.LocalOnly{KeepLast: 1000})
	if err != nil {
		t.Fatalf("PurgeOperations() failed: %v", err)
	}
	if deleted != 50 {
		t.Errorf("deleted %d records, want 50", deleted)
	}

	ops, err := s.ListOperations(ctx)
	if err != nil {
		t.Fatalf("ListOperations() failed: %v", err)
	}
	if len(ops) != 1000 {
		t.Fatalf("kept %d records, want exactly 1000", len(ops))
	}
	// The survivors are the 1000 most recent: op-0050 .. op-1049.
	if ops[0].OperationID != "op-0050" {
		t.Errorf("oldest survivor = %s, want op-0050", ops[0].OperationID)
	}
	if ops[len(ops)-1].OperationID != "op-1049" {
		t.Errorf("newest survivor = %s, want op-1049", ops[len(ops)-1].OperationID)
	}
}

func TestPurge_LocalOnly_FewerThanKeep(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	appendTestOps(t, s, 10, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	deleted, err := s.PurgeOperations(ctx, op.LocalOnly{KeepLast: 1000})
	if err != nil {
		t.Fatalf("PurgeOperations() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted %d records, want 0", deleted)
	}

	count, err := s.CountOperations(ctx)
	if err != nil {
		t.Fatalf("CountOperations() failed: %v", err)
	}
	if count != 10 {
		t.Errorf("kept %d records, want 10", count)
	}
}

func TestPurge_WithSync_KeepsUnsynced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Records far in the past, all unsynced (nothing sets synced today).
	appendTestOps(t, s, 5, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))

	deleted, err := s.PurgeOperations(ctx, op.WithSync{RetentionDays: 30})
	if err != nil {
		t.Fatalf("PurgeOperations() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted %d unsynced records, want 0", deleted)
	}
}
