package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/warpsched/internal/store"
	"github.com/warpdl/warpsched/pkg/schedule"
	"github.com/warpdl/warpsched/pkg/session"
)

const testSecret = "test-rpc-secret"

// monday9 falls in the Monday 09:00 slot.
var monday9 = time.Date(2024, 1, 8, 9, 15, 0, 0, time.UTC)

type fixture struct {
	engine   *schedule.Engine
	session  *session.Session
	notifier *RPCNotifier
	rpc      *RPCServer
	web      *WebServer
}

type fakeHistory struct {
	list []store.Transition
	err  error
}

func (f *fakeHistory) History(_ context.Context, limit int) ([]store.Transition, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.list) {
		return f.list[:limit], nil
	}
	return f.list, nil
}

// newFixture builds a real engine on an in-memory file store, pinned to
// monday9. The timer is never armed.
func newFixture(t *testing.T, secret string, history HistorySource) *fixture {
	t.Helper()
	discard := log.New(io.Discard, "", 0)
	sess := session.New(schedule.Limits{Download: 100, Upload: 20, Active: 3}, nil)
	notifier := NewRPCNotifier(discard)
	eng, err := schedule.NewEngine(schedule.Deps{
		Session: sess,
		Store:   store.NewFileStore(afero.NewMemMapFs(), "/cfg"),
		Sink:    notifier,
		Clock:   func() time.Time { return monday9 },
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	rs := NewRPCServer(&RPCConfig{
		Secret:    secret,
		Version:   "1.0.0",
		Commit:    "abc123",
		BuildType: "release",
	}, eng, history, sess)
	f := &fixture{
		engine:   eng,
		session:  sess,
		notifier: notifier,
		rpc:      rs,
		web:      NewWebServer(discard, "127.0.0.1:0", rs, notifier, nil),
	}
	t.Cleanup(func() {
		eng.Shutdown()
		notifier.Close()
		rs.Close()
	})
	return f
}

// stoppedTable returns a table with every slot set to Stopped.
func stoppedTable() schedule.PolicyTable {
	return schedule.NewTable(schedule.Stopped)
}

// rpcCall sends a JSON-RPC request to the handler and returns the parsed response.
func rpcCall(t *testing.T, handler http.Handler, method string, params any, authToken string) (int, map[string]any) {
	t.Helper()
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"id":      1,
	}
	if params != nil {
		reqBody["params"] = params
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return rpcCallRaw(t, handler, data, authToken)
}

// rpcCallRaw sends a raw body to the handler and returns the parsed response.
func rpcCallRaw(t *testing.T, handler http.Handler, body []byte, authToken string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	resp := rr.Result()
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	var result map[string]any
	if len(respBody) > 0 {
		_ = json.Unmarshal(respBody, &result)
	}
	return rr.Code, result
}

func rpcErrorCode(t *testing.T, resp map[string]any) float64 {
	t.Helper()
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", resp)
	}
	return errObj["code"].(float64)
}
