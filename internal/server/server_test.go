//nolint:testpackage // Tests require internal access for thorough testing
package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lattice/internal/action"
	"lattice/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := storage.NewFileStoreWithPath(t.TempDir())
	if err := store.Init(false); err != nil {
		t.Fatal(err)
	}
	return New(store, nil)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return out
}

func createTestTask(t *testing.T, srv *Server, title string) string {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/tasks", map[string]string{"title": title})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	id, _ := body["task"].(map[string]any)["id"].(string)
	if id == "" {
		t.Fatalf("no id in %v", body)
	}
	return id
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}
}

func TestCreateAndListTasks(t *testing.T) {
	srv := newTestServer(t)
	createTestTask(t, srv, "first")
	createTestTask(t, srv, "second")

	w := doJSON(t, srv, http.MethodGet, "/api/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	tasks, _ := decode(t, w)["tasks"].([]any)
	if len(tasks) != 2 {
		t.Errorf("tasks = %d, want 2", len(tasks))
	}
}

func TestCreateTaskValidation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/tasks", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing title = %d, want 400", w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, "/api/tasks", map[string]string{
		"title": "x", "priority": "urgent",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad priority = %d, want 400", w.Code)
	}
}

func TestShowUnknownTask(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/tasks/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("show = %d, want 404", w.Code)
	}
}

func TestActionAppliesDirectly(t *testing.T) {
	srv := newTestServer(t)
	id := createTestTask(t, srv, "simple")

	w := doJSON(t, srv, http.MethodPost, "/api/tasks/"+id+"/actions", map[string]any{
		"kind": action.KindComplete,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("action = %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["state"] != string(action.StateApplied) {
		t.Errorf("state = %v, want applied", body["state"])
	}
}

func TestConfirmationRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	id := createTestTask(t, srv, "doomed")

	// Delete always raises a confirmation first.
	w := doJSON(t, srv, http.MethodPost, "/api/tasks/"+id+"/actions", map[string]any{
		"kind": action.KindDelete,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("delete = %d, want 409: %s", w.Code, w.Body.String())
	}

	var pending struct {
		Confirmation action.ConfirmationRequest `json:"confirmation"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatal(err)
	}
	if pending.Confirmation.Kind != action.ConfirmDelete {
		t.Fatalf("confirmation kind = %s", pending.Confirmation.Kind)
	}

	// Post the request back with an accept decision.
	w = doJSON(t, srv, http.MethodPost, "/api/confirmations", map[string]any{
		"confirmation": pending.Confirmation,
		"decision":     action.DecisionAccept,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("confirmation = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, srv, http.MethodGet, "/api/tasks/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("task still present after confirmed delete: %d", w.Code)
	}
}

func TestConfirmationCancel(t *testing.T) {
	srv := newTestServer(t)
	id := createTestTask(t, srv, "survivor")

	w := doJSON(t, srv, http.MethodPost, "/api/tasks/"+id+"/actions", map[string]any{
		"kind": action.KindDelete,
	})
	var pending struct {
		Confirmation action.ConfirmationRequest `json:"confirmation"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, srv, http.MethodPost, "/api/confirmations", map[string]any{
		"confirmation": pending.Confirmation,
		"decision":     action.DecisionCancel,
	})
	if w.Code != http.StatusOK || decode(t, w)["state"] != string(action.StateCancelled) {
		t.Fatalf("cancel = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, srv, http.MethodGet, "/api/tasks/"+id, nil)
	if w.Code != http.StatusOK {
		t.Errorf("task gone after cancelled delete: %d", w.Code)
	}
}

func TestDependencyValidation(t *testing.T) {
	srv := newTestServer(t)
	a := createTestTask(t, srv, "a")
	b := createTestTask(t, srv, "b")

	w := doJSON(t, srv, http.MethodPost, "/api/tasks/"+a+"/dependencies", map[string]string{
		"depends_on": b,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add dep = %d: %s", w.Code, w.Body.String())
	}

	// The reverse edge closes a cycle.
	w = doJSON(t, srv, http.MethodPost, "/api/tasks/"+b+"/dependencies", map[string]string{
		"depends_on": a,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("cycle edge = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestStopTimerAlert(t *testing.T) {
	srv := newTestServer(t)
	id := createTestTask(t, srv, "idle")

	w := doJSON(t, srv, http.MethodPost, "/api/tasks/"+id+"/actions", map[string]any{
		"kind": action.KindStopTimer,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("stop without timer = %d, want 422: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["alert"] == nil {
		t.Error("expected alert payload")
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createTestTask(t, srv, "anything")

	w := doJSON(t, srv, http.MethodGet, "/api/tasks/"+id+"/availability", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("availability = %d", w.Code)
	}
	body := decode(t, w)
	primary, _ := body["primary"].([]any)
	if len(primary) != 1 || primary[0] != string(action.KindComplete) {
		t.Errorf("primary = %v, want [complete]", primary)
	}
}

func TestCreateSubtask(t *testing.T) {
	srv := newTestServer(t)
	parent := createTestTask(t, srv, "parent")

	w := doJSON(t, srv, http.MethodPost, "/api/tasks/"+parent+"/subtasks", map[string]string{
		"title": "child",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("subtask = %d: %s", w.Code, w.Body.String())
	}
	view := decode(t, w)["task"].(map[string]any)
	if view["parent"] != parent {
		t.Errorf("parent = %v, want %s", view["parent"], parent)
	}
}
