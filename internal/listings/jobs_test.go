package listings

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carelistings/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.Job{}, &database.Training{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestJobList_EmptyTableReturnsEmptySlice(t *testing.T) {
	repo := NewJobRepository(newTestDB(t), nil, nil)

	jobs, err := repo.List(context.Background(), SortDateDesc)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if jobs == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}

func TestJobCreate_RoundTrip(t *testing.T) {
	repo := NewJobRepository(newTestDB(t), nil, nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, JobInput{
		Title:    "Caregiver",
		Location: "Milwaukee",
		Company:  "Acme",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be assigned")
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Caregiver" || got.Location != "Milwaukee" || got.Company != "Acme" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Qualifications, []string{}) {
		t.Fatalf("expected empty qualifications, got %v", got.Qualifications)
	}
	if !reflect.DeepEqual(got.Responsibilities, []string{}) {
		t.Fatalf("expected empty responsibilities, got %v", got.Responsibilities)
	}
}

func TestJobCreate_RejectsEmptyRequiredFields(t *testing.T) {
	repo := NewJobRepository(newTestDB(t), nil, nil)
	ctx := context.Background()

	cases := []JobInput{
		{Title: "", Location: "Milwaukee", Company: "Acme"},
		{Title: "Caregiver", Location: "   ", Company: "Acme"},
		{Title: "Caregiver", Location: "Milwaukee", Company: ""},
	}
	for _, input := range cases {
		if _, err := repo.Create(ctx, input); !IsValidation(err) {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestJobCreate_NormalizesTextareaInput(t *testing.T) {
	repo := NewJobRepository(newTestDB(t), nil, nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, JobInput{
		Title:          "Caregiver",
		Location:       "Milwaukee",
		Company:        "Acme",
		Qualifications: StringList{"a", "", "b", ""},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got.Qualifications, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", got.Qualifications)
	}
}

func TestJobUpdate_PartialPatchTouchesOnlyNamedFields(t *testing.T) {
	repo := NewJobRepository(newTestDB(t), nil, nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, JobInput{
		Title:          "Caregiver",
		Location:       "Milwaukee",
		Company:        "Acme",
		EmploymentType: "Full-Time",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newTitle := "X"
	updated, err := repo.Update(ctx, created.ID, JobPatch{Title: &newTitle})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Title != "X" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
	if updated.Location != created.Location || updated.Company != created.Company || updated.EmploymentType != created.EmploymentType {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("created_at must be immutable")
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Fatal("updatedAt must move forward on update")
	}
}

func TestJobUpdate_NotFound(t *testing.T) {
	repo := NewJobRepository(newTestDB(t), nil, nil)

	title := "X"
	if _, err := repo.Update(context.Background(), "missing-id", JobPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobUpdate_RejectsEmptyRequiredField(t *testing.T) {
	repo := NewJobRepository(newTestDB(t), nil, nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, JobInput{Title: "Caregiver", Location: "Milwaukee", Company: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	blank := "  "
	if _, err := repo.Update(ctx, created.ID, JobPatch{Company: &blank}); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestJobDelete_Idempotent(t *testing.T) {
	repo := NewJobRepository(newTestDB(t), nil, nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, JobInput{Title: "Caregiver", Location: "Milwaukee", Company: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("second delete must be a no-op success: %v", err)
	}

	if _, err := repo.GetByID(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// 完整生命周期：建卡 -> 读回 -> 部分更新 -> 删除 -> 幂等再删。
func TestJobLifecycleScenario(t *testing.T) {
	repo := NewJobRepository(newTestDB(t), nil, nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, JobInput{Title: "Caregiver", Location: "Milwaukee", Company: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Qualifications) != 0 || len(got.Responsibilities) != 0 {
		t.Fatalf("expected empty sequences, got %+v", got)
	}

	quals := StringList{"CPR cert"}
	if _, err := repo.Update(ctx, created.ID, JobPatch{Qualifications: &quals}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err = repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(got.Qualifications, []string{"CPR cert"}) {
		t.Fatalf("expected [CPR cert], got %v", got.Qualifications)
	}
	if got.Title != "Caregiver" {
		t.Fatalf("title must be unchanged, got %q", got.Title)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestJobList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db, nil, nil)
	ctx := context.Background()

	first, err := repo.Create(ctx, JobInput{Title: "First", Location: "A", Company: "X"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := repo.Create(ctx, JobInput{Title: "Second", Location: "B", Company: "Y"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	// created_at 精度有限时排序可能并列，这里直接拉开先后。
	if err := db.Model(&database.Job{}).Where("id = ?", first.ID).
		Update("created_at", first.CreatedAt.Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate first: %v", err)
	}

	jobs, err := repo.List(ctx, SortDateDesc)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != second.ID {
		t.Fatalf("expected newest first, got %q", jobs[0].Title)
	}
}
