package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tracker/internal/aggregate"
	"tracker/internal/auth"
	"tracker/internal/models"
	"tracker/internal/service"
	"tracker/internal/storage/sqlite"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "server.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	authSvc, err := auth.New(store, "server-test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	dispatcher := aggregate.NewDispatcher(aggregate.NewEngine(store, store), nil)
	srv := New(service.New(store, dispatcher, nil), authSvc, nil, Options{})
	gin.SetMode(gin.TestMode)
	return &testServer{t: t, router: srv.Engine()}
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
func (ts *testServer) do(method, path string, body any, cookie *http.Cookie, out any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			ts.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w
}

func (ts *testServer) register(email string) *http.Cookie {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/api/auth/register", gin.H{"name": "Tester", "email": email, "password": "secret1"}, nil, nil)
	if w.Code != http.StatusCreated {
		ts.t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	ts.t.Fatal("no session cookie issued")
	return nil
}

type projectEnvelope struct {
	Project models.Project `json:"project"`
	Tasks   []models.Task  `json:"tasks"`
}

type taskEnvelope struct {
	Task     models.Task      `json:"task"`
	Project  models.Project   `json:"project"`
	Projects []models.Project `json:"projects"`
}

type errorEnvelope struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/healthz", nil, nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)
	var e errorEnvelope
	w := ts.do(http.MethodGet, "/api/projects", nil, nil, &e)
	if w.Code != http.StatusUnauthorized || e.Kind != "unauthorized" {
		t.Errorf("status = %d kind = %q", w.Code, e.Kind)
	}

	bogus := &http.Cookie{Name: auth.CookieName, Value: "not-a-token"}
	w = ts.do(http.MethodPost, "/api/projects", gin.H{"name": "x"}, bogus, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bogus cookie status = %d", w.Code)
	}
}

func TestLoginLogoutAndMe(t *testing.T) {
	ts := newTestServer(t)
	ts.register("ana@example.com")

	w := ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ANA@example.com", "password": "secret1"}, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body %s", w.Code, w.Body.String())
	}
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	if session == nil || !session.HttpOnly {
		t.Fatalf("login cookie = %+v", session)
	}

	var me struct {
		User models.User `json:"user"`
	}
	if w := ts.do(http.MethodGet, "/api/auth/me", nil, session, &me); w.Code != http.StatusOK || me.User.Email != "ana@example.com" {
		t.Errorf("me = %d %+v", w.Code, me.User)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Error("login response leaks password hash")
	}

	w = ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ana@example.com", "password": "wrong!!"}, nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d", w.Code)
	}

	w = ts.do(http.MethodPost, "/api/auth/logout", nil, session, nil)
	if w.Code != http.StatusOK {
		t.Errorf("logout status = %d", w.Code)
	}

	if w := ts.do(http.MethodPost, "/api/auth/register", gin.H{"name": "Again", "email": "ana@example.com", "password": "secret1"}, nil, nil); w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d", w.Code)
	}
}

func TestTaskFlowRecalculatesProject(t *testing.T) {
	ts := newTestServer(t)
	session := ts.register("ana@example.com")

	var created projectEnvelope
	w := ts.do(http.MethodPost, "/api/projects", gin.H{"name": "  Website "}, session, &created)
	if w.Code != http.StatusCreated {
		t.Fatalf("create project status = %d body %s", w.Code, w.Body.String())
	}
	p := created.Project
	if p.Name != "Website" || p.Status != models.StatusDraft || p.Progress != 0 {
		t.Fatalf("project = %+v", p)
	}

	var te taskEnvelope
	ts.do(http.MethodPost, "/api/projects/"+p.ID+"/tasks", gin.H{"name": "Design", "status": "done", "weight": 2}, session, &te)
	ts.do(http.MethodPost, "/api/tasks", gin.H{"name": "Build", "status": "in_progress", "projectId": p.ID}, session, &te)
	w = ts.do(http.MethodPost, "/api/tasks", gin.H{"name": "Ship", "project_id": p.ID}, session, &te)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task status = %d body %s", w.Code, w.Body.String())
	}
	if te.Task.Status != models.StatusDraft || te.Task.Weight != 1 {
		t.Errorf("defaults not applied: %+v", te.Task)
	}
	if te.Project.Progress != 50 || te.Project.Status != models.StatusInProgress {
		t.Errorf("after create = (%v, %s), want (50, in_progress)", te.Project.Progress, te.Project.Status)
	}
	ship := te.Task

	var updated taskEnvelope
	w = ts.do(http.MethodPut, "/api/tasks/"+ship.ID, gin.H{"status": "done"}, session, &updated)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d body %s", w.Code, w.Body.String())
	}
	if len(updated.Projects) != 1 || updated.Projects[0].Progress != 75 {
		t.Errorf("after update projects = %+v", updated.Projects)
	}

	var listed projectEnvelope
	ts.do(http.MethodGet, "/api/projects/"+p.ID, nil, session, &listed)
	if len(listed.Tasks) != 3 {
		t.Errorf("project has %d tasks", len(listed.Tasks))
	}

	var deleted taskEnvelope
	w = ts.do(http.MethodDelete, "/api/tasks/"+ship.ID, nil, session, &deleted)
	if w.Code != http.StatusOK || deleted.Project.Progress != 66.6 {
		t.Errorf("after delete = %d (%v, %s)", w.Code, deleted.Project.Progress, deleted.Project.Status)
	}

	w = ts.do(http.MethodDelete, "/api/projects/"+p.ID, nil, session, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete project status = %d", w.Code)
	}
	var tasks struct {
		Tasks []models.Task `json:"tasks"`
	}
	w = ts.do(http.MethodGet, "/api/tasks?project_id="+p.ID, nil, session, &tasks)
	if w.Code != http.StatusNotFound {
		t.Errorf("tasks of deleted project status = %d", w.Code)
	}
}

func TestTaskValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	session := ts.register("ana@example.com")
	var created projectEnvelope
	ts.do(http.MethodPost, "/api/projects", gin.H{"name": "P"}, session, &created)
	base := "/api/projects/" + created.Project.ID + "/tasks"

	cases := []struct {
		name string
		body any
	}{
		{"zero weight", gin.H{"name": "x", "weight": 0}},
		{"negative weight", gin.H{"name": "x", "weight": -2}},
		{"weight over limit", gin.H{"name": "x", "weight": models.MaxWeight + 1}},
		{"weight past int64 product", `{"name":"x","weight":10000000000000000}`},
		{"fractional weight", `{"name":"x","weight":1.5}`},
		{"string weight", `{"name":"x","weight":"3"}`},
		{"unknown status", gin.H{"name": "x", "status": "todo"}},
		{"missing name", gin.H{"status": "draft"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var e errorEnvelope
			w := ts.do(http.MethodPost, base, tc.body, session, &e)
			if w.Code != http.StatusBadRequest || e.Kind != "validation" {
				t.Errorf("status = %d kind = %q error = %q", w.Code, e.Kind, e.Error)
			}
		})
	}

	var list struct {
		Tasks []models.Task `json:"tasks"`
	}
	ts.do(http.MethodGet, base, nil, session, &list)
	if len(list.Tasks) != 0 {
		t.Errorf("rejected requests created %d tasks", len(list.Tasks))
	}
}

func TestForeignProjectIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.register("ana@example.com")
	bob := ts.register("bob@example.com")

	var created projectEnvelope
	ts.do(http.MethodPost, "/api/projects", gin.H{"name": "Ana's"}, ana, &created)
	var te taskEnvelope
	ts.do(http.MethodPost, "/api/tasks", gin.H{"name": "secret", "projectId": created.Project.ID}, ana, &te)

	checks := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/projects/" + created.Project.ID, nil},
		{http.MethodPut, "/api/projects/" + created.Project.ID, gin.H{"name": "mine now"}},
		{http.MethodDelete, "/api/projects/" + created.Project.ID, nil},
		{http.MethodPost, "/api/tasks", gin.H{"name": "sneaky", "projectId": created.Project.ID}},
		{http.MethodGet, "/api/tasks/" + te.Task.ID, nil},
		{http.MethodPut, "/api/tasks/" + te.Task.ID, gin.H{"status": "done"}},
		{http.MethodDelete, "/api/tasks/" + te.Task.ID, nil},
	}
	for _, c := range checks {
		if w := ts.do(c.method, c.path, c.body, bob, nil); w.Code != http.StatusNotFound {
			t.Errorf("%s %s as other user = %d, want 404", c.method, c.path, w.Code)
		}
	}

	var own projectEnvelope
	ts.do(http.MethodPost, "/api/projects", gin.H{"name": "Bob's"}, bob, &own)
	w := ts.do(http.MethodPut, "/api/tasks/"+te.Task.ID, gin.H{"projectId": own.Project.ID}, bob, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("moving foreign task = %d, want 404", w.Code)
	}
}

func TestListTasksWithoutProjectIsScoped(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.register("ana@example.com")
	bob := ts.register("bob@example.com")

	var a, b projectEnvelope
	ts.do(http.MethodPost, "/api/projects", gin.H{"name": "A"}, ana, &a)
	ts.do(http.MethodPost, "/api/projects", gin.H{"name": "B"}, bob, &b)
	ts.do(http.MethodPost, "/api/tasks", gin.H{"name": "one", "projectId": a.Project.ID}, ana, nil)
	ts.do(http.MethodPost, "/api/tasks", gin.H{"name": "two", "projectId": a.Project.ID}, ana, nil)
	ts.do(http.MethodPost, "/api/tasks", gin.H{"name": "bob's", "projectId": b.Project.ID}, bob, nil)

	var list struct {
		Tasks []models.Task `json:"tasks"`
	}
	w := ts.do(http.MethodGet, "/api/tasks", nil, ana, &list)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(list.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(list.Tasks))
	}
	for _, task := range list.Tasks {
		if task.ProjectID != a.Project.ID {
			t.Errorf("task %s from project %s listed", task.ID, task.ProjectID)
		}
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	ts := newTestServer(t)
	var e errorEnvelope
	w := ts.do(http.MethodGet, "/api/nowhere", nil, nil, &e)
	if w.Code != http.StatusNotFound || e.Kind != "not_found" {
		t.Errorf("status = %d kind = %q", w.Code, e.Kind)
	}
}
