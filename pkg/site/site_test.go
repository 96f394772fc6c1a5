package site

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"arkadia-host/janus/pkg/config"
	"arkadia-host/janus/pkg/security/auth"
	"arkadia-host/janus/pkg/store"
	"arkadia-host/janus/pkg/telemetry/logging"
)

type fixture struct {
	site    *Site
	store   *store.Store
	engine  *auth.Engine
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine, err := auth.NewEngine(auth.Config{
		Secret:        "test-secret",
		TokenLifetime: time.Hour,
		Logger:        logging.Discard(),
	})
	if err != nil {
		t.Fatal(err)
	}

	adaHash, err := engine.HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	rootHash, err := engine.HashPassword("toor")
	if err != nil {
		t.Fatal(err)
	}

	st := store.New(store.Options{Name: "www", Logger: logging.Discard()})
	root := map[string]any{
		"_": map[string]any{
			"recipes": map[string]any{
				"news": map[string]any{
					"expression": "news",
				},
				"headline": map[string]any{
					"expression": "news[topic=$topic]",
					"params":     []any{"topic"},
				},
				"intel": map[string]any{
					"expression": "intel",
					"auth":       []any{"ops"},
				},
				"members": map[string]any{
					"collection": "people",
					"reference":  "id",
					"auth":       []any{"ops"},
				},
				"docs": map[string]any{
					"root": t.TempDir(),
				},
			},
		},
		"news": []any{
			map[string]any{"topic": "sports", "text": "won"},
			map[string]any{"topic": "weather", "text": "rain"},
		},
		"intel": []any{
			map[string]any{"topic": "secret", "text": "classified"},
		},
		"people": []any{},
		"users": []any{
			map[string]any{
				"username": "ada",
				"status":   auth.StatusActive,
				"member":   []any{"ops"},
				"credentials": map[string]any{
					"hash": adaHash,
				},
			},
			map[string]any{
				"username": "root",
				"status":   auth.StatusActive,
				"member":   []any{auth.AdminGroup},
				"credentials": map[string]any{
					"hash": rootHash,
				},
			},
		},
	}
	if err := st.SetRoot(root); err != nil {
		t.Fatal(err)
	}

	staticRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticRoot, "index.html"), []byte("<h1>hello</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}

	site, err := New("www", config.SiteConfig{StaticRoot: staticRoot}, st, engine, Deps{
		Logger:  logging.Discard(),
		Version: "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{site: site, store: st, engine: engine, handler: site.Handler()}
}

func (f *fixture) do(t *testing.T, method, target, body, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (code int, msg string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response %q is not the error envelope: %v", rec.Body.String(), err)
	}
	return envelope.Error.Code, envelope.Error.Msg
}

func TestOpenRecipeQuery(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/$news", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var result []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result) != 2 {
		t.Errorf("got %d records, want 2", len(result))
	}
}

func TestPositionalBindings(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/$headline/sports", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result) != 1 || result[0]["text"] != "won" {
		t.Errorf("result = %v", result)
	}

	// A query string takes precedence over positional parameters.
	rec = f.do(t, http.MethodGet, "/$headline/sports?topic=weather", "", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result) != 1 || result[0]["text"] != "rain" {
		t.Errorf("query string did not win: %v", result)
	}
}

// Scenario: login with basic credentials, then use the echoed bearer
// token against a gated recipe. No credentials at all must fail with
// the uniform envelope.
func TestLoginThenQuery(t *testing.T) {
	f := newFixture(t)

	login := f.do(t, http.MethodGet, "/$intel", "", basicAuth("ada", "hunter2"))
	if login.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", login.Code, login.Body)
	}
	bearer := login.Header().Get("Authorization")
	if !strings.HasPrefix(bearer, "Bearer ") {
		t.Fatalf("no fresh bearer token echoed, got %q", bearer)
	}

	rec := f.do(t, http.MethodGet, "/$intel", "", bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer query status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/$intel", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
	if code, msg := decodeEnvelope(t, rec); code != http.StatusUnauthorized || msg != "unauthorized" {
		t.Errorf("envelope = %d %q", code, msg)
	}
}

// Unknown recipe names answer with the silent empty result, never an
// error that would leak which names exist.
func TestUnknownRecipeSilent(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/$no-such-recipe", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "{}" {
		t.Errorf("body = %q, want {}", got)
	}
}

func TestUnknownKeywordFallsThroughToStatic(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/index.html", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hello") {
		t.Errorf("static file not served: %q", rec.Body.String())
	}

	// Unknown action keyword is not claimed either.
	rec = f.do(t, http.MethodGet, "/@no-such-action", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown action status = %d, want 404 pass-through", rec.Code)
	}
}

func TestUnsupportedMethod(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/$news", "", "")
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
	if code, _ := decodeEnvelope(t, rec); code != http.StatusNotImplemented {
		t.Errorf("envelope code = %d", code)
	}
}

func TestModifyBatch(t *testing.T) {
	f := newFixture(t)
	creds := basicAuth("ada", "hunter2")

	body := `[{"ref": 7, "record": {"id": 7, "name": "Grace"}}]`
	rec := f.do(t, http.MethodPost, "/$members", body, creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var outcomes []json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &outcomes); err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || string(outcomes[0]) != `["add",7,0]` {
		t.Errorf("outcomes = %v", outcomes)
	}

	// The same payload again merges into the same record.
	rec = f.do(t, http.MethodPost, "/$members", body, creds)
	if err := json.Unmarshal(rec.Body.Bytes(), &outcomes); err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || string(outcomes[0]) != `["change",7,0]` {
		t.Errorf("second apply outcomes = %v", outcomes)
	}

	// Malformed batch fails the whole call.
	rec = f.do(t, http.MethodPost, "/$members", `{"not": "a sequence"}`, creds)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad batch status = %d, want 400", rec.Code)
	}

	// Without the required group the batch never runs.
	rec = f.do(t, http.MethodPost, "/$members", body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous modify status = %d, want 401", rec.Code)
	}
}

func TestFileUploadDownload(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/~docs/reports/q3.txt", "quarterly numbers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodGet, "/~docs/reports/q3.txt", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if rec.Body.String() != "quarterly numbers" {
		t.Errorf("downloaded %q", rec.Body.String())
	}

	// Unknown file recipe is not claimed.
	rec = f.do(t, http.MethodGet, "/~nope/x.txt", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown file recipe status = %d", rec.Code)
	}
}

func TestFileTraversalBlocked(t *testing.T) {
	f := newFixture(t)

	// Plant a file outside the recipe root.
	recipe, _ := f.store.Recipe("docs")
	outside := filepath.Join(filepath.Dir(recipe.Root), "outside.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/~docs/../outside.txt"
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK && rec.Body.String() == "secret" {
		t.Fatal("path traversal escaped the recipe root")
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		segments []string
		want     string
	}{
		{[]string{"a.txt"}, filepath.Join("root", "a.txt")},
		{[]string{"sub", "a.txt"}, filepath.Join("root", "sub", "a.txt")},
		{[]string{"..", "a.txt"}, filepath.Join("root", "a.txt")},
		{[]string{"..", "..", "etc", "passwd"}, filepath.Join("root", "etc", "passwd")},
		{[]string{"sub/../..", "a.txt"}, filepath.Join("root", "a.txt")},
	}
	for _, tt := range tests {
		if got := resolvePath("root", tt.segments); got != tt.want {
			t.Errorf("resolvePath(root, %v) = %q, want %q", tt.segments, got, tt.want)
		}
	}
}

func TestInfoPlane(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/!ping", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ping status = %d", rec.Code)
	}
	var pong map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &pong); err != nil {
		t.Fatal(err)
	}
	if pong["ok"] != true || pong["site"] != "www" {
		t.Errorf("pong = %v", pong)
	}

	rec = f.do(t, http.MethodGet, "/!version", "", "")
	var version map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &version); err != nil {
		t.Fatal(err)
	}
	if version["version"] != "test" {
		t.Errorf("version = %v", version)
	}

	// Metrics are operational detail: admin-gated, and here no
	// collector is wired at all.
	rec = f.do(t, http.MethodGet, "/!metrics", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous metrics status = %d, want 401", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/!metrics", "", basicAuth("root", "toor"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("admin metrics without collector status = %d, want 404", rec.Code)
	}
}

// Full account lifecycle: register PENDING, fail to log in, admin
// grants a code, activate, log in, admin deactivates, fail again.
func TestUserLifecycle(t *testing.T) {
	f := newFixture(t)
	admin := basicAuth("root", "toor")

	rec := f.do(t, http.MethodPost, "/@register", `{"username": "grace", "password": "s3cret", "email": "g@example.com"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "code") {
		t.Fatal("activation code leaked in the register response")
	}

	// PENDING accounts cannot log in.
	rec = f.do(t, http.MethodGet, "/$news", "", basicAuth("grace", "s3cret"))
	if rec.Header().Get("Authorization") != "" {
		t.Fatal("pending account received a session token")
	}

	// Admin issues a fresh code.
	rec = f.do(t, http.MethodPost, "/@grant", `{"username": "grace"}`, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("grant status = %d, body %s", rec.Code, rec.Body)
	}
	var granted map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &granted); err != nil {
		t.Fatal(err)
	}
	code, _ := granted["code"].(string)
	if code == "" {
		t.Fatal("grant returned no code")
	}

	// Wrong code is refused; the right one activates.
	rec = f.do(t, http.MethodGet, "/@activate/grace/wrong", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad code status = %d, want 401", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/@activate/grace/"+code, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d, body %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodGet, "/$news", "", basicAuth("grace", "s3cret"))
	if rec.Header().Get("Authorization") == "" {
		t.Fatal("active account did not receive a session token")
	}

	// Non-admins cannot touch other accounts.
	rec = f.do(t, http.MethodPost, "/@status", `{"username": "grace", "status": "INACTIVE"}`, basicAuth("ada", "hunter2"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-admin status change = %d, want 401", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/@status", `{"username": "grace", "status": "INACTIVE"}`, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/$news", "", basicAuth("grace", "s3cret"))
	if rec.Header().Get("Authorization") != "" {
		t.Fatal("deactivated account can still log in")
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/@register", `{"username": "ada", "password": "whatever"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", rec.Code)
	}
}

func TestScribeAction(t *testing.T) {
	f := newFixture(t)
	admin := basicAuth("root", "toor")

	rec := f.do(t, http.MethodGet, "/@scribe/debug", "", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("scribe status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/@scribe/nonsense", "", admin)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid level status = %d, want 400", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/@scribe/debug", "", basicAuth("ada", "hunter2"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("non-admin scribe status = %d, want 401", rec.Code)
	}
}

func TestReloadAction(t *testing.T) {
	f := newFixture(t)
	admin := basicAuth("root", "toor")

	rec := f.do(t, http.MethodGet, "/@reload/no-such-store", "", admin)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown store status = %d, want 404", rec.Code)
	}

	// A file-backed store re-reads its file, picking up external edits.
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`{"items": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	catalog := store.New(store.Options{Name: "catalog", Path: path, Logger: logging.Discard()})
	f.site.deps.Stores["catalog"] = catalog

	rec = f.do(t, http.MethodGet, "/@reload/catalog", "", admin)
	if rec.Code != http.StatusOK {
		t.Errorf("reload status = %d, body %s", rec.Code, rec.Body)
	}

	// A corrupt file keeps the old tree and reports the failure.
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec = f.do(t, http.MethodGet, "/@reload/catalog", "", admin)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("corrupt reload status = %d, want 500", rec.Code)
	}
}

type recordedEvent struct {
	actor, action, detail string
}

// memoryAuditor collects events in place of the sqlite recorder.
type memoryAuditor struct {
	events []recordedEvent
}

func (m *memoryAuditor) RecordAction(_ context.Context, _, actor, action, detail string) {
	m.events = append(m.events, recordedEvent{actor, action, detail})
}

func TestLoginAuditedRegardlessOfSchemeCase(t *testing.T) {
	f := newFixture(t)
	sink := &memoryAuditor{}
	f.site.deps.Audit = sink

	// The scheme is matched case-insensitively, so a lowercase header
	// is a login attempt like any other.
	creds := base64.StdEncoding.EncodeToString([]byte("ada:hunter2"))
	rec := f.do(t, http.MethodGet, "/!ping", "", "basic "+creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want 1 login event", len(sink.events))
	}
	if got := sink.events[0]; got.actor != "ada" || got.action != "login" || got.detail != "success" {
		t.Errorf("event = %+v, want ada login success", got)
	}

	bad := base64.StdEncoding.EncodeToString([]byte("ada:wrong"))
	f.do(t, http.MethodGet, "/!ping", "", "BASIC "+bad)
	if len(sink.events) != 2 {
		t.Fatalf("events = %d, want a second login event", len(sink.events))
	}
	if got := sink.events[1]; got.action != "login" || !strings.HasPrefix(got.detail, "failure") {
		t.Errorf("event = %+v, want a login failure", got)
	}

	// Bearer traffic is routine and goes unaudited.
	bearer := rec.Header().Get("Authorization")
	if !strings.HasPrefix(bearer, "Bearer ") {
		t.Fatalf("Authorization = %q, want a fresh bearer token", bearer)
	}
	f.do(t, http.MethodGet, "/!ping", "", bearer)
	if len(sink.events) != 2 {
		t.Errorf("events = %d, bearer request must not add login events", len(sink.events))
	}
}
