package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/auth"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/testutil"
)

// testEnv sets up a temp SQLite DB, services, and router for testing.
func testEnv(t *testing.T) http.Handler {
	t.Helper()
	return testEnvWithEvents(t, nil)
}

func testEnvWithEvents(t *testing.T, events http.Handler) http.Handler {
	t.Helper()
	db := testutil.TestDB(t)
	svc := noteservice.NewService(db, nil)
	accounts := noteservice.NewAccounts(db, auth.NewTokens("secret", "quire", time.Hour), auth.NewLoginLimiter(time.Hour, 3))
	return NewRouter(svc, accounts, events)
}

func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/auth/signup", "", map[string]string{"email": email, "password": "hunter22"})
	if w.Code != http.StatusOK {
		t.Fatalf("signup status = %d, body = %s", w.Code, w.Body.String())
	}
	var tok TokenResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tok)
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("token = %+v", tok)
	}
	return tok.AccessToken
}

func login(router http.Handler, email, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, token, title, content string) map[string]any {
	t.Helper()
	w := do(t, router, http.MethodPost, "/notes/", token, map[string]string{"title": title, "content": content})
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var note map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	return note
}

func TestSignupDuplicate(t *testing.T) {
	router := testEnv(t)
	signup(t, router, "a@example.com")

	w := do(t, router, http.MethodPost, "/auth/signup", "", map[string]string{"email": "a@example.com", "password": "hunter22"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Email already registered") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSignupInvalidEmail(t *testing.T) {
	router := testEnv(t)
	w := do(t, router, http.MethodPost, "/auth/signup", "", map[string]string{"email": "nope", "password": "hunter22"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid email = %d, want 422", w.Code)
	}
}

func TestSignupPasswordTooLong(t *testing.T) {
	router := testEnv(t)
	for name, pw := range map[string]string{
		"73 ascii bytes":     strings.Repeat("a", 73),
		"80 bytes, 40 runes": strings.Repeat("é", 40),
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/auth/signup", "", map[string]string{"email": "long@example.com", "password": pw})
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422, body = %s", w.Code, w.Body.String())
			}
		})
	}

	w := do(t, router, http.MethodPost, "/auth/signup", "", map[string]string{"email": "long@example.com", "password": strings.Repeat("a", 72)})
	if w.Code != http.StatusOK {
		t.Errorf("72-byte password status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestLogin(t *testing.T) {
	router := testEnv(t)
	signup(t, router, "a@example.com")

	w := login(router, "a@example.com", "hunter22")
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d, body = %s", w.Code, w.Body.String())
	}
	var tok TokenResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tok)

	w = do(t, router, http.MethodGet, "/auth/me", tok.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me = %d", w.Code)
	}
	var me AccountResponse
	_ = json.Unmarshal(w.Body.Bytes(), &me)
	if me.Email != "a@example.com" || me.ID == "" {
		t.Errorf("me = %+v", me)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	router := testEnv(t)
	signup(t, router, "a@example.com")

	w := login(router, "a@example.com", "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", w.Code)
	}
	w = login(router, "ghost@example.com", "hunter22")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown account = %d, want 401", w.Code)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	router := testEnv(t)
	for i := 0; i < 3; i++ {
		login(router, "a@example.com", "x")
	}
	w := login(router, "a@example.com", "x")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("fourth attempt = %d, want 429", w.Code)
	}
}

func TestNotesRequireAuth(t *testing.T) {
	router := testEnv(t)

	w := do(t, router, http.MethodGet, "/notes/", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
	w = do(t, router, http.MethodGet, "/notes/", "garbage", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", w.Code)
	}
}

func TestCreateAndGetNote(t *testing.T) {
	router := testEnv(t)
	token := signup(t, router, "a@example.com")

	created := createNote(t, router, token, "Hello", "<p>World</p>")
	id, _ := created["_id"].(string)
	if id == "" {
		t.Fatalf("created note has no _id: %v", created)
	}
	if _, ok := created["id"]; ok {
		t.Errorf("response should carry _id only: %v", created)
	}

	for _, path := range []string{"/notes/" + id + "/", "/notes/" + id} {
		w := do(t, router, http.MethodGet, path, token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get %s = %d", path, w.Code)
		}
		var note NoteDetail
		_ = json.Unmarshal(w.Body.Bytes(), &note)
		if note.Title != "Hello" || note.Content != "<p>World</p>" {
			t.Errorf("note = %+v", note)
		}
	}
}

func TestNotesAreOwnerScoped(t *testing.T) {
	router := testEnv(t)
	alice := signup(t, router, "alice@example.com")
	bob := signup(t, router, "bob@example.com")

	created := createNote(t, router, alice, "private", "")
	id := created["_id"].(string)

	if w := do(t, router, http.MethodGet, "/notes/"+id+"/", bob, nil); w.Code != http.StatusNotFound {
		t.Errorf("foreign get = %d, want 404", w.Code)
	}
	w := do(t, router, http.MethodGet, "/notes/", bob, nil)
	var list []NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 0 {
		t.Errorf("bob sees %d notes", len(list))
	}
}

func TestUpdateNote(t *testing.T) {
	router := testEnv(t)
	token := signup(t, router, "a@example.com")
	id := createNote(t, router, token, "v1", "body")["_id"].(string)

	w := do(t, router, http.MethodPut, "/notes/"+id+"/", token, map[string]string{"title": "v2", "content": "new"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Title != "v2" || note.Content != "new" {
		t.Errorf("updated = %+v", note)
	}

	w = do(t, router, http.MethodPut, "/notes/"+id+"/", token, map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty update = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPut, "/notes/missing/", token, map[string]string{"title": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	router := testEnv(t)
	token := signup(t, router, "a@example.com")
	id := createNote(t, router, token, "bye", "")["_id"].(string)

	w := do(t, router, http.MethodDelete, "/notes/"+id+"/", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Note deleted successfully") {
		t.Errorf("body = %s", w.Body.String())
	}

	w = do(t, router, http.MethodDelete, "/notes/"+id+"/", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListNotes_SearchAndSort(t *testing.T) {
	router := testEnv(t)
	token := signup(t, router, "a@example.com")
	createNote(t, router, token, "banana", "yellow fruit")
	createNote(t, router, token, "apple", "red fruit")
	createNote(t, router, token, "carrot", "vegetable")

	w := do(t, router, http.MethodGet, "/notes/?search_query=FRUIT&sort_by=title", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var list []NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 2 || list[0].Title != "apple" || list[1].Title != "banana" {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/notes/?search_query=zzz", token, nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty result body = %q, want []", w.Body.String())
	}
}

func TestEventsRouteIsAuthenticated(t *testing.T) {
	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if OwnerID(r) == "" {
			t.Error("events handler saw no owner")
		}
	})
	router := testEnvWithEvents(t, events)

	if w := do(t, router, http.MethodGet, "/events", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("events without token = %d, want 401", w.Code)
	}

	token := signup(t, router, "a@example.com")
	w := do(t, router, http.MethodGet, "/events", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("events with token = %d", w.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics("quire_test")
	root := chi.NewRouter()
	root.Use(m.Middleware)
	root.Mount("/api/v1", testEnv(t))

	root.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/notes/", nil))
	m.ObserveChange("u", "created", "n")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, `quire_test_http_requests_total{method="GET",route="/api/v1/notes/",status="401"} 1`) {
		t.Errorf("request counter missing:\n%s", body)
	}
	if !strings.Contains(body, `quire_test_note_changes_total{kind="created"} 1`) {
		t.Errorf("change counter missing")
	}
}
