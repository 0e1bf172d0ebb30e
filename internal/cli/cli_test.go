package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"tasklist/internal/annotate"
	"tasklist/internal/api"
	"tasklist/internal/devserver"
	"tasklist/internal/model"

	xansi "github.com/charmbracelet/x/ansi"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()
	return runCLIWithInput(t, nil, args)
}

func runCLIWithInput(t *testing.T, in io.Reader, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	if in != nil {
		cmd.SetIn(in)
	}
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate keeps the user's config and env out of a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("TASKLIST_CONFIG_DIR", t.TempDir())
	t.Setenv("TASKLIST_API_URL", "")
	t.Setenv("TASKLIST_TIMEOUT", "")
	t.Setenv("TASKLIST_FORMAT", "")
}

func startAPI(t *testing.T) (*devserver.Server, string) {
	t.Helper()
	srv := devserver.New(nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL + "/api"
}

type taskEnvelope struct {
	Data  model.Task     `json:"data"`
	Hints map[string]any `json:"_hints"`
}

type tasksEnvelope struct {
	Data  []model.Task   `json:"data"`
	Hints map[string]any `json:"_hints"`
}

func mustRunJSON(t *testing.T, out any, args ...string) []byte {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("tasklist %v: %v\nstderr:\n%s", args, err, stderr)
	}
	if err := json.Unmarshal(stdout, out); err != nil {
		t.Fatalf("unmarshal stdout: %v\nstdout:\n%s", err, stdout)
	}
	return stderr
}

func TestTasks_CRUDAgainstAPI(t *testing.T) {
	isolate(t)
	srv, url := startAPI(t)

	var created taskEnvelope
	stderr := mustRunJSON(t, &created, "--api-url", url, "tasks", "create", "--text", "  Call @ana about #launch  ", "--priority", "high")
	if len(stderr) != 0 {
		t.Fatalf("expected no fallback warnings online, got %s", stderr)
	}
	if created.Hints != nil {
		t.Fatalf("expected no hints for an online result, got %v", created.Hints)
	}
	c := created.Data
	if c.ID == 0 || c.Title != "Call @ana about #launch" || c.Priority != model.PriorityHigh || c.Status != model.StatusOpen {
		t.Fatalf("unexpected created task: %+v", c)
	}
	if len(c.Mentions) != 1 || c.Mentions[0] != "ana" || len(c.Hashtags) != 1 || c.Hashtags[0] != "launch" {
		t.Fatalf("expected server-derived entities, got mentions=%v hashtags=%v", c.Mentions, c.Hashtags)
	}
	if srv.Len() != 1 {
		t.Fatalf("expected the task stored on the server, got %d", srv.Len())
	}

	id := strconv.FormatInt(c.ID, 10)

	var list tasksEnvelope
	mustRunJSON(t, &list, "--api-url", url, "tasks", "list")
	if len(list.Data) != 1 || list.Data[0].ID != c.ID {
		t.Fatalf("expected the created task listed, got %+v", list.Data)
	}

	var updated taskEnvelope
	mustRunJSON(t, &updated, "--api-url", url, "tasks", "update", id, "--status", "today", "--public")
	if updated.Data.Status != model.StatusToday || !updated.Data.IsPublic || updated.Data.Title != c.Title {
		t.Fatalf("expected a partial update, got %+v", updated.Data)
	}

	mustRunJSON(t, &list, "--api-url", url, "tasks", "list", "--status", "open")
	if len(list.Data) != 0 {
		t.Fatalf("expected no open tasks after the update, got %+v", list.Data)
	}

	var shown taskEnvelope
	mustRunJSON(t, &shown, "--api-url", url, "tasks", "show", id)
	if shown.Data.ID != c.ID || shown.Data.Status != model.StatusToday {
		t.Fatalf("unexpected show result: %+v", shown.Data)
	}

	var deleted map[string]any
	mustRunJSON(t, &deleted, "--api-url", url, "tasks", "delete", id)
	if srv.Len() != 0 {
		t.Fatalf("expected the server to be empty after delete, got %d", srv.Len())
	}

	_, stderrB, err := runCLI(t, []string{"--api-url", url, "tasks", "show", id})
	if err == nil || !strings.Contains(string(stderrB), "task not found: "+id) {
		t.Fatalf("expected not-found error, got err=%v stderr=%s", err, stderrB)
	}
}

func TestTasks_BulkDelete(t *testing.T) {
	isolate(t)
	srv, url := startAPI(t)
	srv.Seed(
		model.Task{ID: 1, Title: "one", Status: model.StatusOpen, Priority: model.PriorityNormal},
		model.Task{ID: 2, Title: "two", Status: model.StatusOpen, Priority: model.PriorityNormal},
		model.Task{ID: 3, Title: "three", Status: model.StatusOpen, Priority: model.PriorityNormal},
	)

	var out map[string]any
	mustRunJSON(t, &out, "--api-url", url, "tasks", "bulk-delete", "1", "3")
	if srv.Len() != 1 {
		t.Fatalf("expected one task left, got %d", srv.Len())
	}
	data, _ := out["data"].(map[string]any)
	if ids, _ := data["ids"].([]any); len(ids) != 2 {
		t.Fatalf("expected deleted ids echoed, got %v", out)
	}
}

func TestTasks_RejectedCreateIsAnError(t *testing.T) {
	isolate(t)
	srv, url := startAPI(t)

	long := strings.Repeat("x", devserver.MaxTitleChars+100)
	stdout, stderr, err := runCLI(t, []string{"--api-url", url, "tasks", "create", "--text", long})
	if err == nil {
		t.Fatalf("expected an error, got stdout=%s", stdout)
	}
	if !strings.Contains(string(stderr), "rejected by the task API") || !strings.Contains(string(stderr), "no more than") {
		t.Fatalf("expected the server's validation message, got %s", stderr)
	}
	if strings.Contains(string(stderr), "using local data") {
		t.Fatalf("a rejection must not fall back, got %s", stderr)
	}
	if len(stdout) != 0 || srv.Len() != 0 {
		t.Fatalf("expected nothing saved, stdout=%s server=%d", stdout, srv.Len())
	}
}

func TestTasks_Replace(t *testing.T) {
	isolate(t)
	srv, url := startAPI(t)
	srv.Seed(model.Task{ID: 4, Title: "old @ana", RawText: "old @ana", Description: "notes", Status: model.StatusToday, Priority: model.PriorityHigh, IsPublic: true})

	var replaced taskEnvelope
	mustRunJSON(t, &replaced, "--api-url", url, "tasks", "replace", "4", "new #plan")
	got := replaced.Data
	if got.ID != 4 || got.Title != "new #plan" || got.Description != "" || got.Status != model.StatusOpen || got.Priority != model.PriorityNormal || got.IsPublic {
		t.Fatalf("expected every field overwritten, got %+v", got)
	}
	if len(got.Hashtags) != 1 || got.Hashtags[0] != "plan" || len(got.Mentions) != 0 {
		t.Fatalf("expected entities rederived, got mentions=%v hashtags=%v", got.Mentions, got.Hashtags)
	}

	_, stderr, err := runCLI(t, []string{"--api-url", url, "tasks", "replace", "99", "--text", "nobody"})
	if err == nil || !strings.Contains(string(stderr), "task not found: 99") {
		t.Fatalf("expected not-found error, got err=%v stderr=%s", err, stderr)
	}
}

func TestTasks_UpdateUnknownTaskIsNotFound(t *testing.T) {
	isolate(t)

	_, stderr, err := runCLI(t, []string{"--offline", "tasks", "update", "77", "--text", "ghost"})
	if err == nil || !strings.Contains(string(stderr), "task not found: 77") {
		t.Fatalf("expected not-found error, got err=%v stderr=%s", err, stderr)
	}
}

func TestTasks_OfflineFlagUsesMocksQuietly(t *testing.T) {
	isolate(t)

	var list tasksEnvelope
	stderr := mustRunJSON(t, &list, "--offline", "tasks", "list")
	if len(list.Data) != 2 || list.Data[0].Title != "Primera tarea @team #urgent" {
		t.Fatalf("expected the two sample tasks, got %+v", list.Data)
	}
	if list.Hints["offline"] != true {
		t.Fatalf("expected offline hint, got %v", list.Hints)
	}
	if len(stderr) != 0 {
		t.Fatalf("--offline should not warn, got %s", stderr)
	}

	var created taskEnvelope
	mustRunJSON(t, &created, "--offline", "tasks", "create", "offline @me")
	if created.Data.ID == 0 || created.Data.Title != "offline @me" || created.Hints["offline"] != true {
		t.Fatalf("expected a locally created task, got %+v hints=%v", created.Data, created.Hints)
	}
}

func TestTasks_UnreachableAPIFallsBackWithWarning(t *testing.T) {
	isolate(t)
	// Closed port: every request fails with a transport error.
	ts := httptest.NewServer(nil)
	dead := ts.URL + "/api"
	ts.Close()

	var list tasksEnvelope
	stderr := mustRunJSON(t, &list, "--api-url", dead, "--timeout", "1", "tasks", "list", "--status", "open")
	if list.Hints["offline"] != true {
		t.Fatalf("expected offline hint, got %v", list.Hints)
	}
	if len(list.Data) != 2 {
		t.Fatalf("expected both open sample tasks, got %+v", list.Data)
	}
	if !strings.Contains(string(stderr), "using local data") {
		t.Fatalf("expected a fallback warning on stderr, got %q", stderr)
	}
}

func TestTasks_ArgumentErrors(t *testing.T) {
	isolate(t)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"bad id", []string{"--offline", "tasks", "show", "abc"}, "invalid task id"},
		{"zero id", []string{"--offline", "tasks", "delete", "0"}, "invalid task id"},
		{"missing text", []string{"--offline", "tasks", "create"}, "missing --text"},
		{"bad status", []string{"--offline", "tasks", "list", "--status", "done"}, "invalid status"},
		{"bad priority", []string{"--offline", "tasks", "create", "--text", "x", "--priority", "urgent"}, "invalid priority"},
		{"empty update", []string{"--offline", "tasks", "update", "1"}, "nothing to update"},
		{"empty text update", []string{"--offline", "tasks", "update", "1", "--text", "  "}, "cannot be empty"},
		{"bad format", []string{"--offline", "--format", "yaml", "tasks", "list"}, "unknown format"},
		{"bad timeout", []string{"--timeout", "0", "tasks", "list"}, "timeout must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr, err := runCLI(t, tc.args)
			if err == nil {
				t.Fatalf("expected error; stdout=%s", stdout)
			}
			if !strings.Contains(string(stderr), tc.want) {
				t.Fatalf("expected stderr to mention %q, got %q", tc.want, stderr)
			}
		})
	}
}

func TestTasks_EDNOutput(t *testing.T) {
	isolate(t)

	stdout, stderr, err := runCLI(t, []string{"--offline", "--format", "edn", "tasks", "show", "2"})
	if err != nil {
		t.Fatalf("show: %v\n%s", err, stderr)
	}
	got := string(stdout)
	if !strings.HasPrefix(got, "{:_hints {:offline true} :data {") || !strings.Contains(got, `:is-public true`) {
		t.Fatalf("unexpected edn: %s", got)
	}
}

func TestAnnotate_SegmentsAndCheck(t *testing.T) {
	isolate(t)

	var out struct {
		Data struct {
			Text     string             `json:"text"`
			Segments []annotate.Segment `json:"segments"`
			Entities annotate.Extracted `json:"entities"`
			Valid    bool               `json:"valid"`
		} `json:"data"`
	}
	mustRunJSON(t, &out, "annotate", "--check", "mail ana@example.com @team")
	if !out.Data.Valid || out.Data.Text != "mail ana@example.com @team" {
		t.Fatalf("unexpected data: %+v", out.Data)
	}
	var kinds []annotate.Kind
	for _, s := range out.Data.Segments {
		kinds = append(kinds, s.Kind)
	}
	want := []annotate.Kind{annotate.Plain, annotate.Email, annotate.Plain, annotate.Mention}
	if len(kinds) != len(want) {
		t.Fatalf("expected kinds %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected kinds %v, got %v", want, kinds)
		}
	}
	if len(out.Data.Entities.Emails) != 1 || out.Data.Entities.Emails[0] != "ana@example.com" {
		t.Fatalf("expected the email extracted, got %+v", out.Data.Entities)
	}
	if len(out.Data.Entities.Mentions) != 1 || out.Data.Entities.Mentions[0] != "team" {
		t.Fatalf("expected the mention extracted, got %+v", out.Data.Entities)
	}
}

func TestAnnotate_ReadsStdin(t *testing.T) {
	isolate(t)

	stdout, stderr, err := runCLIWithInput(t, strings.NewReader("see www.go.dev\n"), []string{"annotate"})
	if err != nil {
		t.Fatalf("annotate: %v\n%s", err, stderr)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, stdout)
	}
	data := env["data"].(map[string]any)
	if data["text"] != "see www.go.dev" {
		t.Fatalf("expected the trailing newline dropped, got %q", data["text"])
	}
	if segs := data["segments"].([]any); len(segs) != 2 {
		t.Fatalf("expected plain + link, got %v", segs)
	}

	_, stderr, err = runCLIWithInput(t, strings.NewReader(""), []string{"annotate"})
	if err == nil || !strings.Contains(string(stderr), "no text") {
		t.Fatalf("expected an error for empty stdin, got err=%v stderr=%s", err, stderr)
	}
}

func TestAnnotate_Render(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, []string{"annotate", "--render", "ping @ops #now"})
	if err != nil {
		t.Fatalf("annotate --render: %v", err)
	}
	if got := xansi.Strip(string(stdout)); got != "ping @ops #now\n" {
		t.Fatalf("expected the text back without styling, got %q", got)
	}
}

func TestConfig_SetShowPath(t *testing.T) {
	isolate(t)

	var out map[string]any
	mustRunJSON(t, &out, "config", "set", "timeout", "5")
	mustRunJSON(t, &out, "config", "set", "tui.glyphs", "ASCII")

	mustRunJSON(t, &out, "config", "show")
	data := out["data"].(map[string]any)
	if data["timeout"] != "5s" || data["tui.glyphs"] != "ascii" || data["tui.theme"] != "auto" {
		t.Fatalf("unexpected config: %v", data)
	}
	if data["api-url"] != "http://localhost:8000/api" {
		t.Fatalf("expected the default api url, got %v", data["api-url"])
	}

	// Flags win for the run but are never written back.
	mustRunJSON(t, &out, "--api-url", "http://example.test/api/", "config", "show")
	if got := out["data"].(map[string]any)["api-url"]; got != "http://example.test/api" {
		t.Fatalf("expected the flag to override, got %v", got)
	}
	mustRunJSON(t, &out, "--api-url", "http://example.test/api", "config", "set", "tui.theme", "dark")
	if got := out["data"].(map[string]any)["api-url"]; got != "http://localhost:8000/api" {
		t.Fatalf("expected saved config to keep the file value, got %v", got)
	}

	mustRunJSON(t, &out, "config", "path")
	if p, _ := out["data"].(map[string]any)["path"].(string); !strings.HasSuffix(p, "config.json") {
		t.Fatalf("unexpected path: %v", out)
	}

	_, stderr, err := runCLI(t, []string{"config", "set", "colour", "red"})
	if err == nil || !strings.Contains(string(stderr), "unknown config key") {
		t.Fatalf("expected unknown key error, got err=%v stderr=%s", err, stderr)
	}
}

func TestConfig_FileTimeoutUsedByCommands(t *testing.T) {
	isolate(t)
	_, url := startAPI(t)

	var out map[string]any
	mustRunJSON(t, &out, "config", "set", "api-url", url)

	var list tasksEnvelope
	stderr := mustRunJSON(t, &list, "tasks", "list")
	if list.Hints != nil || len(stderr) != 0 {
		t.Fatalf("expected the configured API to answer, hints=%v stderr=%s", list.Hints, stderr)
	}
	if len(list.Data) != 0 {
		t.Fatalf("expected an empty server list, got %+v", list.Data)
	}
}

func TestTasksWatch_PrintsChanges(t *testing.T) {
	isolate(t)
	_, url := startAPI(t)

	type result struct {
		stdout, stderr []byte
		err            error
	}
	done := make(chan result, 1)
	go func() {
		stdout, stderr, err := runCLI(t, []string{"--api-url", url, "tasks", "watch", "--limit", "1"})
		done <- result{stdout, stderr, err}
	}()

	// The watcher may not be subscribed yet; keep creating until it reports one change.
	c := api.NewClient(url, 2*time.Second)
	deadline := time.After(5 * time.Second)
	var r result
wait:
	for {
		select {
		case r = <-done:
			break wait
		case <-deadline:
			t.Fatal("watch did not report a change")
		default:
			_, err := c.Create(context.Background(), model.NewTaskInput("watched @ops", time.Now()))
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
	if r.err != nil {
		t.Fatalf("watch: %v\n%s", r.err, r.stderr)
	}

	var env struct {
		Data model.TaskEvent `json:"data"`
	}
	if err := json.Unmarshal(r.stdout, &env); err != nil {
		t.Fatalf("expected exactly one JSON document, got %q: %v", r.stdout, err)
	}
	if env.Data.Kind != model.EventCreated || env.Data.Task == nil || env.Data.Task.Mentions[0] != "ops" {
		t.Fatalf("unexpected event: %+v", env.Data)
	}
}

func TestTasksWatch_OfflineIsAnError(t *testing.T) {
	isolate(t)

	_, stderr, err := runCLI(t, []string{"--offline", "tasks", "watch"})
	if err == nil || !strings.Contains(string(stderr), "live updates need") {
		t.Fatalf("expected a watch error offline, got err=%v stderr=%s", err, stderr)
	}
}
