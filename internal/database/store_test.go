package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chengmaomao/sendblessings/internal/database"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func TestStoreRecordsDispatchAndDeliveries(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	dispatch := &database.Dispatch{
		Holiday:  "春节",
		Blessing: "新春快乐！",
		Trigger:  database.TriggerScheduled,
	}
	if err := store.RecordDispatch(ctx, dispatch); err != nil {
		t.Fatalf("RecordDispatch() error = %v", err)
	}
	if dispatch.ID == 0 {
		t.Fatal("RecordDispatch() did not set the dispatch ID")
	}

	deliveries := []*database.Delivery{
		{DispatchID: dispatch.ID, Platform: "telegram", Kind: "group", TargetID: "100", Status: database.StatusSent},
		{DispatchID: dispatch.ID, Platform: "telegram", Kind: "friend", TargetID: "200", Status: database.StatusFailed},
	}
	for _, d := range deliveries {
		if err := store.RecordDelivery(ctx, d); err != nil {
			t.Fatalf("RecordDelivery(%s) error = %v", d.TargetID, err)
		}
		if d.ID == 0 {
			t.Errorf("RecordDelivery(%s) did not set the delivery ID", d.TargetID)
		}
	}

	if err := store.RunMaintenance(ctx); err != nil {
		t.Errorf("RunMaintenance() error = %v", err)
	}
}

func TestStoreRecentDispatchesNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	holidays := []string{"元旦", "春节", "劳动节"}
	for _, name := range holidays {
		d := &database.Dispatch{Holiday: name, Blessing: name + "快乐！", Trigger: database.TriggerManual}
		if err := store.RecordDispatch(ctx, d); err != nil {
			t.Fatalf("RecordDispatch(%s) error = %v", name, err)
		}
	}

	recent, err := store.RecentDispatches(ctx, 2)
	if err != nil {
		t.Fatalf("RecentDispatches() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentDispatches() returned %d rows, want 2", len(recent))
	}
	if recent[0].Holiday != "劳动节" || recent[1].Holiday != "春节" {
		t.Errorf("RecentDispatches() order = [%s, %s], want newest first", recent[0].Holiday, recent[1].Holiday)
	}
}

func TestStoreRejectsInvalidRecords(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordDispatch(ctx, &database.Dispatch{Blessing: "x", Trigger: database.TriggerTest}); err == nil {
		t.Error("RecordDispatch() accepted a dispatch without a holiday")
	}
	if err := store.RecordDelivery(ctx, &database.Delivery{Platform: "telegram", TargetID: "1", Status: database.StatusSent}); err == nil {
		t.Error("RecordDelivery() accepted a delivery without a dispatch reference")
	}
}
