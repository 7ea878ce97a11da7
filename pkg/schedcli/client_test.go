package schedcli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/google/go-cmp/cmp"
	"github.com/warpdl/warpsched/common"
	"github.com/warpdl/warpsched/pkg/schedule"
)

const testSecret = "s3cret"

type fakeDaemon struct {
	mu      sync.Mutex
	cfg     *schedule.Config
	rules   *common.ApplyRulesParams
	limit   int
	version string
}

func (d *fakeDaemon) methods() handler.Map {
	return handler.Map{
		common.MethodGetVersion: handler.New(func(context.Context) (*common.VersionResult, error) {
			return &common.VersionResult{Version: d.version, Commit: "abc"}, nil
		}),
		common.MethodGetConfig: handler.New(func(context.Context) (*schedule.Config, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			return d.cfg.Clone(), nil
		}),
		common.MethodSetConfig: handler.New(func(_ context.Context, u *schedule.ConfigUpdate) (*schedule.Config, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			next := d.cfg.Merge(u)
			if err := next.Validate(); err != nil {
				return nil, &jrpc2.Error{Code: -32602, Message: err.Error()}
			}
			d.cfg = next
			return next.Clone(), nil
		}),
		common.MethodGetState: handler.New(func(context.Context) (*common.StateResult, error) {
			return &common.StateResult{Level: "Slow", LevelValue: schedule.Slow, Previous: "Normal"}, nil
		}),
		common.MethodApplyRules: handler.New(func(_ context.Context, p *common.ApplyRulesParams) (*schedule.Config, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.rules = p
			return d.cfg.Clone(), nil
		}),
		common.MethodHistory: handler.New(func(_ context.Context, p *common.HistoryParams) (*common.HistoryResult, error) {
			d.mu.Lock()
			d.limit = p.Limit
			d.mu.Unlock()
			return &common.HistoryResult{Transitions: []common.HistoryEntry{
				{ID: "1", From: "Normal", To: "Slow", Trigger: "timer"},
			}}, nil
		}),
	}
}

func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testSecret {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newTestClient(t *testing.T) (*Client, *fakeDaemon) {
	t.Helper()
	d := &fakeDaemon{cfg: schedule.DefaultConfig(schedule.Limits{Download: 100, Upload: 10, Active: 2}), version: "1.2.3"}
	bridge := jhttp.NewBridge(d.methods(), nil)
	t.Cleanup(func() { bridge.Close() })
	mux := http.NewServeMux()
	mux.Handle("/jsonrpc", requireBearer(bridge))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, testSecret)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, d
}

func TestNewClient_EmptyAddress(t *testing.T) {
	if _, err := NewClient("  ", ""); !errors.Is(err, ErrNoAddress) {
		t.Fatalf("expected ErrNoAddress, got %v", err)
	}
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:6807":           "http://127.0.0.1:6807",
		"http://host:1/":           "http://host:1",
		"https://example.com/rpc/": "https://example.com/rpc",
	}
	for in, want := range tests {
		got, err := baseURL(in)
		if err != nil {
			t.Fatalf("baseURL(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("baseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWSURL(t *testing.T) {
	c := &Client{base: "https://example.com"}
	if got := c.wsURL(); got != "wss://example.com/jsonrpc/ws" {
		t.Errorf("wsURL = %q", got)
	}
	c.base = "http://127.0.0.1:6807"
	if got := c.wsURL(); got != "ws://127.0.0.1:6807/jsonrpc/ws" {
		t.Errorf("wsURL = %q", got)
	}
}

func TestClient_Version(t *testing.T) {
	c, _ := newTestClient(t)
	v, err := c.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.Version != "1.2.3" || v.Commit != "abc" {
		t.Errorf("unexpected version %+v", v)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	c, _ := newTestClient(t)
	bad, err := NewClient(c.base, "wrong")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer bad.Close()
	if _, err := bad.GetState(); err == nil {
		t.Fatal("expected error with wrong secret")
	}
}

func TestClient_GetAndSetConfig(t *testing.T) {
	c, d := newTestClient(t)
	cfg, err := c.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if diff := cmp.Diff(d.cfg, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	down := 42.0
	got, err := c.SetConfig(&schedule.ConfigUpdate{SlowDownloadLimit: &down})
	if err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if got.SlowDownloadLimit != 42 {
		t.Errorf("SlowDownloadLimit = %v, want 42", got.SlowDownloadLimit)
	}
}

func TestClient_SetConfigRejected(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.SetConfig(&schedule.ConfigUpdate{PolicyTable: schedule.PolicyTable{{schedule.Slow}}})
	var je *jrpc2.Error
	if !errors.As(err, &je) {
		t.Fatalf("expected *jrpc2.Error, got %v", err)
	}
	if je.Code != -32602 {
		t.Errorf("code = %d, want -32602", je.Code)
	}
}

func TestClient_GetState(t *testing.T) {
	c, _ := newTestClient(t)
	st, err := c.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if st.Level != "Slow" || st.LevelValue != schedule.Slow || st.Previous != "Normal" {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestClient_ApplyRules(t *testing.T) {
	c, d := newTestClient(t)
	rules := []schedule.Rule{{Expr: "* 9-17 * * 1-5", Level: schedule.Normal}}
	if _, err := c.ApplyRules(rules, true); err != nil {
		t.Fatalf("ApplyRules: %v", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rules == nil || !d.rules.Reset {
		t.Fatalf("expected reset rules, got %+v", d.rules)
	}
	if diff := cmp.Diff(rules, d.rules.Rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_History(t *testing.T) {
	c, d := newTestClient(t)
	res, err := c.History(5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(res.Transitions) != 1 || res.Transitions[0].To != "Slow" {
		t.Errorf("unexpected history %+v", res.Transitions)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.limit != 5 {
		t.Errorf("limit = %d, want 5", d.limit)
	}
}

func TestCheckVersionMismatch(t *testing.T) {
	c, _ := newTestClient(t)

	var buf bytes.Buffer
	c.CheckVersionMismatch(&buf, "")
	c.CheckVersionMismatch(&buf, "1.2.3")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	c.CheckVersionMismatch(&buf, "2.0.0")
	if !strings.Contains(buf.String(), "differs from daemon version (1.2.3)") {
		t.Errorf("expected mismatch warning, got %q", buf.String())
	}

	buf.Reset()
	t.Setenv(VersionCheckEnv, "1")
	c.CheckVersionMismatch(&buf, "2.0.0")
	if buf.Len() != 0 {
		t.Errorf("expected suppressed output, got %q", buf.String())
	}
}

func TestClient_Watch(t *testing.T) {
	srv := httptest.NewServer(requireBearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := cws.Accept(w, r, nil)
		if err != nil {
			return
		}
		s := jrpc2.NewServer(handler.Map{}, &jrpc2.ServerOptions{AllowPush: true})
		s.Start(&wsChannel{conn: conn, ctx: r.Context()})
		ctx := r.Context()
		_ = s.Notify(ctx, "other.event", map[string]string{"x": "y"})
		_ = s.Notify(ctx, common.NotifyStateChanged, common.StateChangedParams{Level: "Stopped"})
		_ = s.Notify(ctx, common.NotifyStateChanged, common.StateChangedParams{Level: "Normal"})
		_ = s.Wait()
	})))
	defer srv.Close()

	c, err := NewClient(srv.URL, testSecret)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	errc := make(chan error, 1)
	go func() {
		errc <- c.Watch(ctx, func(level string) {
			mu.Lock()
			got = append(got, level)
			if len(got) == 2 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return")
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"Stopped", "Normal"}, got); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_WatchUnauthorized(t *testing.T) {
	srv := httptest.NewServer(requireBearer(http.NotFoundHandler()))
	defer srv.Close()
	c, err := NewClient(srv.URL, "wrong")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Watch(ctx, func(string) {}); err == nil {
		t.Fatal("expected dial error")
	}
}
