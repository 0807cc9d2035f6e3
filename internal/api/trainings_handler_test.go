package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"carelistings/internal/listings"
)

func newTrainingsHandler(t *testing.T) (*TrainingsHandler, *listings.TrainingRepository) {
	t.Helper()
	repo := listings.NewTrainingRepository(newTestDB(t), nil, nil)
	return NewTrainingsHandler(repo, nil), repo
}

func decodeTrainingView(t *testing.T, body *bytes.Buffer) listings.TrainingView {
	t.Helper()
	var view listings.TrainingView
	if err := json.Unmarshal(body.Bytes(), &view); err != nil {
		t.Fatalf("decode training view: %v body=%s", err, body.String())
	}
	return view
}

func TestListTrainings_EmptyTableReturnsEmptyArray(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTrainingsHandler(t)

	c, w := testContext(jsonRequest(t, http.MethodGet, "/api/trainings", nil), nil)
	h.ListTrainings(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Fatalf("empty table must serialize as [], got %s", got)
	}
}

func TestCreateTraining_TitleOnlyIsEnough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTrainingsHandler(t)

	c, w := testContext(jsonRequest(t, http.MethodPost, "/api/trainings", gin.H{
		"title":        "CBRF Certification",
		"requirements": "18 years or older\nHigh school diploma",
	}), nil)
	h.CreateTraining(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	view := decodeTrainingView(t, w.Body)
	if view.ID == "" {
		t.Fatal("created training must carry a server-assigned id")
	}
	if len(view.Requirements) != 2 {
		t.Fatalf("textarea requirements must split into lines, got %v", view.Requirements)
	}
}

func TestCreateTraining_BlankTitleReturns400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTrainingsHandler(t)

	c, w := testContext(jsonRequest(t, http.MethodPost, "/api/trainings", gin.H{"title": "  "}), nil)
	h.CreateTraining(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestUpdateTraining_PartialPatchLeavesOtherFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, repo := newTrainingsHandler(t)

	created, err := repo.Create(context.Background(), listings.TrainingInput{
		Title:      "CBRF Certification",
		Price:      "$249",
		ClassHours: "9am - 3pm",
	})
	if err != nil {
		t.Fatalf("seed training: %v", err)
	}

	c, w := testContext(
		jsonRequest(t, http.MethodPut, "/api/trainings/"+created.ID, gin.H{"price": "$199"}),
		gin.Params{{Key: "id", Value: created.ID}},
	)
	h.UpdateTraining(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	view := decodeTrainingView(t, w.Body)
	if view.Price != "$199" {
		t.Fatalf("price not updated: %q", view.Price)
	}
	if view.ClassHours != "9am - 3pm" {
		t.Fatalf("untouched field changed: %q", view.ClassHours)
	}
}

func TestUpdateTraining_MissingReturns404(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTrainingsHandler(t)

	c, w := testContext(
		jsonRequest(t, http.MethodPut, "/api/trainings/missing", gin.H{"title": "New"}),
		gin.Params{{Key: "id", Value: "missing"}},
	)
	h.UpdateTraining(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Training not found")) {
		t.Fatalf("expected not-found message, got %s", w.Body.String())
	}
}

func TestDeleteTraining_MissingStillSucceeds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTrainingsHandler(t)

	c, w := testContext(
		jsonRequest(t, http.MethodDelete, "/api/trainings/missing", nil),
		gin.Params{{Key: "id", Value: "missing"}},
	)
	h.DeleteTraining(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
}
