package playground

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"koala/pkg/config"
	"koala/pkg/vm"
)

func TestWebSocketRun(t *testing.T) {
	srv := newTestServer(t)

	conn := dial(t, srv)
	msgs := runSource(t, conn, `fn main() { print(1) print("ab") println(2) }`)

	var out strings.Builder
	for _, m := range msgs[:len(msgs)-1] {
		if m.Type != MessageOutput {
			t.Fatalf("unexpected message before done: %+v", m)
		}
		out.WriteString(m.Data)
	}
	if out.String() != "1ab2\n" {
		t.Errorf("wrong output: %q", out.String())
	}

	last := msgs[len(msgs)-1]
	if last.Type != MessageDone {
		t.Fatalf("run did not finish: %+v", last)
	}
	for _, m := range msgs {
		if m.Run != last.Run || m.Run == "" {
			t.Fatalf("messages of one run carry different ids: %+v", msgs)
		}
	}
}

func TestWebSocketRunsAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	source := `fn main() { global n = 0; n = n + 1; print(n) }`
	first := runSource(t, conn, source)
	second := runSource(t, conn, source)

	if first[0].Data != "1" || second[0].Data != "1" {
		t.Fatalf("state leaked between runs: %+v / %+v", first, second)
	}
	if first[0].Run == second[0].Run {
		t.Fatal("two runs share an id")
	}
}

func TestWebSocketErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		output  string
		errText string
	}{
		{"parse error", "fn main( {", "", "parse"},
		{"compile error", "fn main() { print(x) }", "", "undefined variable"},
		{"runtime fault", "fn main() { print(7) print(1 / 0) }", "7", "division by zero"},
		{"step limit", "fn main() { while 1 { } }", "", "step limit exceeded"},
	}

	srv := newTestServer(t)
	conn := dial(t, srv)

	for _, tt := range tests {
		msgs := runSource(t, conn, tt.source)

		var out strings.Builder
		for _, m := range msgs[:len(msgs)-1] {
			out.WriteString(m.Data)
		}
		last := msgs[len(msgs)-1]

		if last.Type != MessageError || !strings.Contains(last.Error, tt.errText) {
			t.Errorf("%s: wrong final message: %+v", tt.name, last)
		}
		if out.String() != tt.output {
			t.Errorf("%s: wrong output before failure: %q", tt.name, out.String())
		}
	}
}

func TestDefaultConfigLimitsRuns(t *testing.T) {
	tests := []struct {
		name string
		opts []vm.Option
	}{
		{"no options", nil},
		{"vm section", config.Default().VMOptions()},
		{"playground section", config.Default().PlaygroundVMOptions()},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(New(WithVMOptions(tt.opts...)))
		conn := dial(t, srv)
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		msgs := runSource(t, conn, "fn main() { while 1 { } }")
		last := msgs[len(msgs)-1]
		if last.Type != MessageError || !strings.Contains(last.Error, "step limit exceeded") {
			t.Errorf("%s: endless loop not stopped: %+v", tt.name, last)
		}
		conn.Close()
		srv.Close()
	}
}

func TestSnippets(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/snippets", "application/json",
		strings.NewReader(`{"source":"fn main() { print(42) }"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d", resp.StatusCode)
	}

	var saved map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		t.Fatal(err)
	}
	if saved["id"] == "" || len(saved["digest"]) != 64 {
		t.Fatalf("unexpected save response: %v", saved)
	}

	get, err := http.Get(srv.URL + "/snippets/" + saved["id"])
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", get.StatusCode)
	}

	var snip Snippet
	if err := json.NewDecoder(get.Body).Decode(&snip); err != nil {
		t.Fatal(err)
	}
	if snip.Source != "fn main() { print(42) }" || snip.Digest != saved["digest"] {
		t.Fatalf("wrong snippet: %+v", snip)
	}
}

func TestSnippetRequestErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodPost, "/snippets", `not json`, http.StatusBadRequest},
		{http.MethodPost, "/snippets", `{"source":""}`, http.StatusBadRequest},
		{http.MethodGet, "/snippets/not-a-uuid", "", http.StatusNotFound},
		{http.MethodGet, "/snippets/6f1c2a8e-3d4b-4f5a-9b6c-7d8e9f0a1b2c", "", http.StatusNotFound},
		{http.MethodDelete, "/snippets", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.status)
		}
	}
}

func TestSnippetsDisabled(t *testing.T) {
	srv := httptest.NewServer(New())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/snippets", "application/json", strings.NewReader(`{"source":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCache(t *testing.T) {
	cache := NewCache(2)
	a := "fn main() { print(1) }"
	b := "fn main() { print(2) }"
	c := "fn main() { print(3) }"

	first, err := cache.Compile(a)
	if err != nil {
		t.Fatal(err)
	}
	again, err := cache.Compile(a)
	if err != nil {
		t.Fatal(err)
	}
	if &first[0] != &again[0] {
		t.Error("second compile of the same source was not served from the cache")
	}

	if _, err := cache.Compile(b); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Compile(c); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 2 {
		t.Errorf("cache holds %d entries, want 2", cache.Len())
	}

	if _, err := cache.Compile("fn nope() { }"); err == nil {
		t.Error("expected a compile error for a program without main")
	}
	if cache.Len() != 2 {
		t.Error("failed compile was cached")
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 4 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}

	// a was evicted first.
	if _, err := cache.Compile(a); err != nil {
		t.Fatal(err)
	}
	if hits, _ := cache.Stats(); hits != 1 {
		t.Error("evicted entry served from the cache")
	}
}

func TestStore(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, err := store.Save(ctx, "fn main() { }")
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Save(ctx, "fn main() { }")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("two saves got the same id")
	}
	if a.Digest != b.Digest {
		t.Error("same source produced different digests")
	}

	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != a.Source || !got.Created.Equal(a.Created) {
		t.Errorf("wrong snippet: %+v, want %+v", got, a)
	}

	if _, err := store.Get(ctx, "6f1c2a8e-3d4b-4f5a-9b6c-7d8e9f0a1b2c"); !errors.Is(err, ErrSnippetNotFound) {
		t.Errorf("expected ErrSnippetNotFound, got %v", err)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(
		WithStore(openStore(t)),
		WithVMOptions(vm.WithStepLimit(10_000)),
	))
	t.Cleanup(srv.Close)
	return srv
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// runSource sends one program and collects messages up to and including
// the final done or error.
func runSource(t *testing.T, conn *websocket.Conn, source string) []Message {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{"source": source}); err != nil {
		t.Fatalf("send: %v", err)
	}

	var msgs []Message
	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		msgs = append(msgs, m)
		if m.Type == MessageDone || m.Type == MessageError {
			return msgs
		}
	}
}
