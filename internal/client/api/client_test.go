package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"forkknight/internal/server/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	c := New(srv.URL + "/")
	c.Out = out
	return c, out
}

func TestRequestHeaders(t *testing.T) {
	var got *http.Request
	var body core.MoveRequest
	c, out := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(core.GameResponse{GameID: "g1", Moves: []string{"e2e4"}})
	})
	c.SetToken("tok")

	resp, err := c.MakeMove("g1", "e4")
	if err != nil {
		t.Fatal(err)
	}
	if got.URL.Path != "/api/v1/games/g1/moves" || got.Method != http.MethodPost {
		t.Errorf("request = %s %s", got.Method, got.URL.Path)
	}
	if got.Header.Get("Authorization") != "Bearer tok" || got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("headers = %v", got.Header)
	}
	if body.Move != "e4" {
		t.Errorf("body move = %q", body.Move)
	}
	if diff := cmp.Diff([]string{"e2e4"}, resp.Moves); diff != "" {
		t.Errorf("moves (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "[API] POST /api/v1/games/g1/moves") {
		t.Errorf("request not echoed:\n%s", out)
	}
}

func TestNoBodyWithoutContentType(t *testing.T) {
	var contentType string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"count":1,"message":"Look at the rook","from":"a1"}`))
	})

	hint, err := c.PuzzleHint("s1")
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		t.Errorf("content type = %q, want none", contentType)
	}
	if hint.Count != 1 || hint.From != "a1" {
		t.Errorf("hint = %+v", hint)
	}
}

func TestErrorResponse(t *testing.T) {
	c, out := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(core.ErrorResponse{
			Error:   "session finished",
			Code:    core.ErrSessionFinished,
			Details: "start a new attempt",
		})
	})

	_, err := c.PuzzleHint("s1")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	want := &Error{Status: 409, Code: core.ErrSessionFinished, Message: "session finished", Details: "start a new attempt"}
	if diff := cmp.Diff(want, apiErr); diff != "" {
		t.Errorf("error (-want +got):\n%s", diff)
	}
	for _, s := range []string{"409 Conflict", "Code: SESSION_FINISHED", "Details: start a new attempt"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestQueryParameters(t *testing.T) {
	var query string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`[]`))
	})

	lessons, err := c.Lessons("tactics", "beginner")
	if err != nil {
		t.Fatal(err)
	}
	if query != "category=tactics&difficulty=beginner" {
		t.Errorf("query = %q", query)
	}
	if len(lessons) != 0 {
		t.Errorf("lessons = %v", lessons)
	}
}

func TestRawRequestShowsBody(t *testing.T) {
	c, out := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if err := c.RawRequest("get", "/health", ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"status": "healthy"`) {
		t.Errorf("raw response not shown:\n%s", out)
	}
	if c.Verbose {
		t.Error("raw request left verbose mode on")
	}
}
