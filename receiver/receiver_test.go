package receiver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/gearsync/dbopen"
)

const testProfile = `{
  "Breakpoints": {
    "Enabled": true,
    "Gear": [
      {"Time": 0, "ID": [1, 2], "Comment": "Fire Build"},
      {"Time": 600, "ID": [3], "Comment": "Water Build"},
      {"Time": 1200, "ID": [4], "Comment": null},
      {"Time": 1800, "ID": [5]}
    ]
  },
  "Version": 3
}`

const testSettings = `{
  "PriorityBoosts": [9],
  "YggLoadout": [8],
  "Other": "kept"
}`

type fixture struct {
	dir      string
	settings *Settings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.json")
	settingsFile := filepath.Join(dir, "settings-target.json")
	writeFile(t, profile, testProfile)
	writeFile(t, settingsFile, testSettings)

	return &fixture{
		dir: dir,
		settings: &Settings{
			FilePath:     profile,
			SettingsPath: settingsFile,
			SettingsMapper: map[string]string{
				"Fire Build":  "YggLoadout",
				"Water Build": "Missing",
				"Other Label": "PriorityBoosts",
			},
		},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readObject(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	return m
}

func gearIDs(t *testing.T, profile map[string]any) [][]any {
	t.Helper()
	gear := profile["Breakpoints"].(map[string]any)["Gear"].([]any)
	out := make([][]any, len(gear))
	for i, g := range gear {
		out[i] = g.(map[string]any)["ID"].([]any)
	}
	return out
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)

	matched, err := UpdateProfile(f.settings.FilePath, map[string][]int{
		"Fire Build": {10, 20},
		"Unknown":    {99},
	})
	if err != nil {
		t.Fatal(err)
	}
	if matched != 1 {
		t.Errorf("matched: got %d, want 1", matched)
	}

	profile := readObject(t, f.settings.FilePath)
	got := gearIDs(t, profile)
	want := [][]any{{10.0, 20.0}, {3.0}, {4.0}, {5.0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("gear IDs: got %v, want %v", got, want)
	}
	if profile["Version"] != 3.0 {
		t.Errorf("top-level field lost: %v", profile)
	}
	if profile["Breakpoints"].(map[string]any)["Enabled"] != true {
		t.Errorf("Breakpoints field lost: %v", profile["Breakpoints"])
	}
}

func TestUpdateProfile_PrettyPrinted(t *testing.T) {
	f := newFixture(t)
	if _, err := UpdateProfile(f.settings.FilePath, nil); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(f.settings.FilePath)
	if !strings.HasPrefix(string(data), "{\n  \"Breakpoints\": {") {
		t.Errorf("not indented with two spaces:\n%s", data)
	}
}

func TestUpdateProfile_MissingGear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	writeFile(t, path, `{"Breakpoints": {}}`)
	if _, err := UpdateProfile(path, nil); err == nil {
		t.Fatal("want error for missing Breakpoints.Gear")
	}
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)

	updated, err := UpdateSettings(f.settings.SettingsPath, f.settings.SettingsMapper, map[string][]int{
		"Fire Build":  {7, 8},
		"Water Build": {1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated != 1 {
		t.Errorf("updated: got %d, want 1", updated)
	}

	s := readObject(t, f.settings.SettingsPath)
	if !reflect.DeepEqual(s["YggLoadout"], []any{7.0, 8.0}) {
		t.Errorf("YggLoadout: got %v", s["YggLoadout"])
	}
	if !reflect.DeepEqual(s["PriorityBoosts"], []any{9.0}) {
		t.Errorf("PriorityBoosts changed without a payload label: %v", s["PriorityBoosts"])
	}
	if _, ok := s["Missing"]; ok {
		t.Error("absent settings key was added")
	}
	if s["Other"] != "kept" {
		t.Errorf("Other: got %v", s["Other"])
	}
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "settings.json")
	writeFile(t, jsonPath, `{"filePath":"p.json","settingsPath":"s.json","settingsMapper":{"A":"B"}}`)
	s, err := LoadSettings(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if s.FilePath != "p.json" || s.SettingsPath != "s.json" || s.SettingsMapper["A"] != "B" {
		t.Errorf("json settings: got %+v", s)
	}

	yamlPath := filepath.Join(dir, "settings.yaml")
	writeFile(t, yamlPath, "filePath: p.json\nsettingsPath: s.json\n")
	s, err = LoadSettings(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if s.SettingsMapper == nil {
		t.Error("yaml settings: nil mapper")
	}

	badPath := filepath.Join(dir, "bad.json")
	writeFile(t, badPath, `{"settingsPath":"s.json"}`)
	if _, err := LoadSettings(badPath); err == nil {
		t.Error("missing filePath: want error")
	}
}

func newTestServer(t *testing.T, f *fixture) (*Server, *History) {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	h := NewHistory(db)
	return NewServer(f.settings, WithHistory(h)), h
}

func TestServer_Sync(t *testing.T) {
	f := newFixture(t)
	srv, hist := newTestServer(t, f)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json",
		strings.NewReader(`[{"Fire Build":[101,202]},{"Water Build":[303]}]`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res != (Result{Entries: 2, GearMatched: 2, SettingsUpdated: 1}) {
		t.Errorf("result: got %+v", res)
	}

	got := gearIDs(t, readObject(t, f.settings.FilePath))
	if !reflect.DeepEqual(got[0], []any{101.0, 202.0}) || !reflect.DeepEqual(got[1], []any{303.0}) {
		t.Errorf("gear IDs: got %v", got)
	}

	recs, err := hist.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Status != StatusApplied || recs[0].TraceID == "" {
		t.Fatalf("history: got %+v", recs)
	}
	if !reflect.DeepEqual(recs[0].Labels, []string{"Fire Build", "Water Build"}) {
		t.Errorf("history labels: got %v", recs[0].Labels)
	}
}

func TestServer_RejectsMalformed(t *testing.T) {
	f := newFixture(t)
	srv, _ := newTestServer(t, f)
	h := srv.Handler()

	for _, body := range []string{`{"A":[1]}`, `[{"A":[1],"B":[2]}]`, `[{"A":[-1]}]`, `not json`} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("body %s: status %d, want 422", body, rec.Code)
		}
	}

	data, _ := os.ReadFile(f.settings.FilePath)
	if string(data) != testProfile {
		t.Error("profile rewritten by a rejected request")
	}
}

func TestServer_FileFailureIs500(t *testing.T) {
	f := newFixture(t)
	f.settings.FilePath = filepath.Join(f.dir, "does-not-exist.json")
	srv, hist := newTestServer(t, f)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[]`)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}

	recs, _ := hist.Recent(context.Background(), 1)
	if len(recs) != 1 || recs[0].Status != StatusFailed || recs[0].Error == "" {
		t.Errorf("history: got %+v", recs)
	}
}

func TestServer_PreflightAndHealth(t *testing.T) {
	f := newFixture(t)
	srv, _ := newTestServer(t, f)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://gmiclotte.github.io")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("preflight: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz: got %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_History(t *testing.T) {
	f := newFixture(t)
	srv, hist := newTestServer(t, f)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := hist.Record(ctx, SyncRecord{Entries: i, Status: StatusApplied}); err != nil {
			t.Fatal(err)
		}
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var recs []SyncRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("records: got %d, want 2", len(recs))
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d", rec.Code)
	}
}

func TestMCP_History(t *testing.T) {
	f := newFixture(t)
	srv, hist := newTestServer(t, f)
	if _, err := hist.Record(context.Background(), SyncRecord{Entries: 4, Status: StatusApplied}); err != nil {
		t.Fatal(err)
	}

	impl := &mcp.Implementation{Name: "gearsyncd-test", Version: "0.1.0"}
	mcpSrv := mcp.NewServer(impl, nil)
	srv.RegisterMCP(mcpSrv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = mcpSrv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "gearsync_history",
		Arguments: map[string]any{"limit": 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("tool error: %v", err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var recs []SyncRecord
	if err := json.Unmarshal([]byte(tc.Text), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Entries != 4 {
		t.Errorf("records: got %+v", recs)
	}
}

func TestHistory_RecentCorruptLabels(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	_, err := db.Exec(`INSERT INTO sync_history (id, received_at, entries, labels, status)
		VALUES ('syn_bad', 1, 1, 'not json', 'applied')`)
	if err != nil {
		t.Fatal(err)
	}

	_, err = NewHistory(db).Recent(context.Background(), 10)
	if err == nil || !strings.Contains(err.Error(), "syn_bad") {
		t.Fatalf("error: got %v, want labels decode error for syn_bad", err)
	}
}
