package admin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"carelistings/internal/realtime"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type itemInput struct {
	Title string
}

type itemPatch struct {
	Title *string
}

type fakeBackend struct {
	rows    []item
	listErr error

	createBlock chan struct{}
	createErr   error
	removeErr   error
}

func (f *fakeBackend) list(ctx context.Context) ([]item, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]item, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeBackend) create(ctx context.Context, in itemInput) (*item, error) {
	if f.createBlock != nil {
		<-f.createBlock
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	created := item{ID: "generated", Title: in.Title}
	return &created, nil
}

func (f *fakeBackend) update(ctx context.Context, id string, p itemPatch) (*item, error) {
	updated := item{ID: id}
	if p.Title != nil {
		updated.Title = *p.Title
	}
	return &updated, nil
}

func (f *fakeBackend) remove(ctx context.Context, id string) error {
	return f.removeErr
}

func newTestController(f *fakeBackend) *Controller[item, itemInput, itemPatch] {
	return newController(
		func(i item) string { return i.ID },
		f.list, f.create, f.update, f.remove,
		nil,
	)
}

func deleteEvent(t *testing.T, id string) realtime.Event {
	t.Helper()
	old, err := json.Marshal(item{ID: id})
	if err != nil {
		t.Fatalf("marshal old row: %v", err)
	}
	return realtime.Event{Type: realtime.EventDelete, Table: "jobs", OldRow: old}
}

func TestLoad_FailureKeepsStaleRowsAndSetsFlag(t *testing.T) {
	f := &fakeBackend{rows: []item{{ID: "1", Title: "Caregiver"}}}
	ctl := newTestController(f)

	if err := ctl.Load(context.Background()); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	f.listErr = errors.New("connection refused")
	if err := ctl.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}

	if got := ctl.Rows(); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("stale rows must survive a failed load, got %v", got)
	}
	if !ctl.LoadFailed() {
		t.Fatal("LoadFailed must be set after a failed load")
	}
	if ctl.LastError() == "" {
		t.Fatal("LastError must carry the failure message")
	}

	f.listErr = nil
	if err := ctl.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if ctl.LoadFailed() || ctl.LastError() != "" {
		t.Fatal("a successful load must clear the error state")
	}
}

func TestSubmitCreate_RejectsConcurrentSubmitOnSameForm(t *testing.T) {
	f := &fakeBackend{createBlock: make(chan struct{})}
	ctl := newTestController(f)

	firstDone := make(chan error, 1)
	go func() {
		_, err := ctl.SubmitCreate(context.Background(), itemInput{Title: "Caregiver"})
		firstDone <- err
	}()

	waitUntil(t, func() bool { return ctl.Saving(FormNew) })

	if _, err := ctl.SubmitCreate(context.Background(), itemInput{Title: "Nurse"}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(f.createBlock)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if ctl.Saving(FormNew) {
		t.Fatal("in-flight flag must clear after the submit returns")
	}
}

func TestSubmitCreate_FailureSetsLastErrorOnly(t *testing.T) {
	f := &fakeBackend{createErr: errors.New("title is required")}
	ctl := newTestController(f)

	if _, err := ctl.SubmitCreate(context.Background(), itemInput{}); err == nil {
		t.Fatal("expected create error")
	}
	if ctl.LastError() == "" {
		t.Fatal("LastError must carry the submit failure")
	}
	if ctl.LoadFailed() {
		t.Fatal("a submit failure must not set the load flag")
	}
}

func TestSubmitDelete_RemovesRowOptimistically(t *testing.T) {
	f := &fakeBackend{rows: []item{{ID: "1", Title: "Caregiver"}, {ID: "2", Title: "Nurse"}}}
	ctl := newTestController(f)
	if err := ctl.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := ctl.SubmitDelete(context.Background(), "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rows := ctl.Rows()
	if len(rows) != 1 || rows[0].ID != "2" {
		t.Fatalf("deleted row must disappear without waiting for the event, got %v", rows)
	}
}

func TestSubmitDelete_FailureKeepsRow(t *testing.T) {
	f := &fakeBackend{
		rows:      []item{{ID: "1", Title: "Caregiver"}},
		removeErr: errors.New("connection refused"),
	}
	ctl := newTestController(f)
	if err := ctl.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := ctl.SubmitDelete(context.Background(), "1"); err == nil {
		t.Fatal("expected delete error")
	}
	if got := ctl.Rows(); len(got) != 1 {
		t.Fatalf("row must survive a failed delete, got %v", got)
	}
}

// 两个管理会话同时在线：一方删除后，另一方通过变更事件看到该行消失，
// 发起方随后收到同一事件时不受影响。
func TestDelete_PropagatesAcrossSessions(t *testing.T) {
	shared := &fakeBackend{rows: []item{{ID: "1", Title: "Caregiver"}}}
	sessionA := newTestController(shared)
	sessionB := newTestController(shared)
	for _, ctl := range []*Controller[item, itemInput, itemPatch]{sessionA, sessionB} {
		if err := ctl.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}

	if err := sessionA.SubmitDelete(context.Background(), "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	evt := deleteEvent(t, "1")
	sessionB.ApplyEvent(evt)
	if got := sessionB.Rows(); len(got) != 0 {
		t.Fatalf("session B must see the deletion via the event, got %v", got)
	}

	// 发起方已乐观移除，事件回放是空操作。
	sessionA.ApplyEvent(evt)
	if got := sessionA.Rows(); len(got) != 0 {
		t.Fatalf("replayed event must stay a no-op, got %v", got)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
