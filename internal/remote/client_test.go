package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/trial"
)

func TestListTrialsSendsAuthAndQuery(t *testing.T) {
	var gotAuth, gotSet string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSet = r.URL.Query().Get("setId")
		json.NewEncoder(w).Encode(TrialList{
			ActiveTrialID: "t1",
			TrialCount:    2,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123")
	list, err := c.ListTrials(context.Background(), "set-9")
	if err != nil {
		t.Fatalf("ListTrials: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotSet != "set-9" {
		t.Fatalf("setId = %q", gotSet)
	}
	if list.ActiveTrialID != "t1" || list.TrialCount != 2 {
		t.Fatalf("list = %+v", list)
	}
}

func TestGetTrialNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GetTrial(context.Background(), "s", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUnauthorizedMapping(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		c := NewClient(srv.URL, "bad")
		_, err := c.ListTrials(context.Background(), "s")
		srv.Close()
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("status %d: err = %v, want ErrUnauthorized", code, err)
		}
	}
}

func TestCreateTrialConflictCarriesTrialID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"message": "active trial exists",
			"trialId": "busy-1",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.CreateTrial(context.Background(), "s", 10)
	var exists *ErrActiveTrialExists
	if !errors.As(err, &exists) {
		t.Fatalf("err = %v, want ErrActiveTrialExists", err)
	}
	if exists.TrialID != "busy-1" {
		t.Fatalf("conflict trial id = %q", exists.TrialID)
	}
}

func TestUpdateTrialRoundTrip(t *testing.T) {
	var gotPath string
	var gotBody struct {
		SetID string                `json:"setId"`
		State attempt.ProgressState `json:"state"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(UpdateResult{OK: true, UpdatedAt: gotBody.State.UpdatedAt})
	}))
	defer srv.Close()

	state := attempt.ProgressState{
		CurrentIndex: 2,
		Attempts:     map[string]attempt.Attempt{},
		UpdatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	c := NewClient(srv.URL, "")
	res, err := c.UpdateTrial(context.Background(), "s", "t1", state)
	if err != nil {
		t.Fatalf("UpdateTrial: %v", err)
	}
	if gotPath != "/trials/t1" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.SetID != "s" || gotBody.State.CurrentIndex != 2 {
		t.Fatalf("body = %+v", gotBody)
	}
	if !res.OK || !res.UpdatedAt.Equal(state.UpdatedAt) {
		t.Fatalf("result = %+v", res)
	}
}

func TestCompleteTrialPath(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewEncoder(w).Encode(trial.Trial{ID: "t1", Status: trial.StatusCompleted})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	done, err := c.CompleteTrial(context.Background(), "s", "t1", 10)
	if err != nil {
		t.Fatalf("CompleteTrial: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/trials/t1/complete" {
		t.Fatalf("%s %s", gotMethod, gotPath)
	}
	if !done.Completed() {
		t.Fatalf("trial = %+v", done)
	}
}

func TestGetProgressLegacy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(FlatProgress{
			SetID:     "s",
			UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			State: &attempt.ProgressState{
				CurrentIndex: 4,
				Attempts:     map[string]attempt.Attempt{},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	flat, err := c.GetProgress(context.Background(), "s")
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if flat.State == nil || flat.State.CurrentIndex != 4 {
		t.Fatalf("flat = %+v", flat)
	}
}

func TestServerErrorIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.ListTrials(context.Background(), "s")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if se.Code != 500 || se.Message != "boom" {
		t.Fatalf("status error = %+v", se)
	}
}
