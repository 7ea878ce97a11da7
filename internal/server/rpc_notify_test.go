package server

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/warpdl/warpsched/common"
	"github.com/warpdl/warpsched/pkg/schedule"
)

// newTestServer creates a jrpc2 server with push support backed by an
// io.Pipe-based channel. Returns the client channel (for draining), the
// server, and a cleanup function. The client channel must be drained or
// closed to avoid blocking the server's push operations.
func newTestServer(t *testing.T) (channel.Channel, *jrpc2.Server, func()) {
	t.Helper()
	cr, sw := io.Pipe()
	sr, cw := io.Pipe()
	cli := channel.Line(cr, cw)
	srvCh := channel.Line(sr, sw)

	srv := jrpc2.NewServer(handler.Map{}, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(srvCh)

	cleanup := func() {
		cli.Close()
		_ = srv.Wait()
	}
	return cli, srv, cleanup
}

// pushMessage is the wire shape of a server push notification.
type pushMessage struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func recvPush(t *testing.T, cli channel.Channel) pushMessage {
	t.Helper()
	got := make(chan []byte, 1)
	go func() {
		data, _ := cli.Recv()
		got <- data
	}()
	select {
	case data := <-got:
		var msg pushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode push %q: %v", data, err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no push notification received")
		return pushMessage{}
	}
}

func TestNewRPCNotifier(t *testing.T) {
	n := NewRPCNotifier(nil)
	if n == nil {
		t.Fatal("expected non-nil notifier")
	}
	if n.Count() != 0 {
		t.Fatalf("expected 0 servers, got %d", n.Count())
	}
}

func TestRPCNotifier_RegisterUnregister(t *testing.T) {
	n := NewRPCNotifier(nil)
	_, srv, cleanup := newTestServer(t)
	defer cleanup()

	n.Register(srv)
	n.Register(srv)
	if n.Count() != 1 {
		t.Fatalf("expected 1 server after double register, got %d", n.Count())
	}
	n.Unregister(srv)
	n.Unregister(srv)
	if n.Count() != 0 {
		t.Fatalf("expected 0 servers after unregister, got %d", n.Count())
	}
}

func TestRPCNotifier_Broadcast_NoServers(t *testing.T) {
	n := NewRPCNotifier(nil)
	// Broadcast with no servers should not panic
	n.Broadcast(common.NotifyStateChanged, &common.StateChangedParams{Level: "Slow"})
}

func TestRPCNotifier_Broadcast_Success(t *testing.T) {
	n := NewRPCNotifier(nil)
	cli, srv, cleanup := newTestServer(t)
	defer cleanup()
	n.Register(srv)

	done := make(chan []byte, 1)
	go func() {
		data, _ := cli.Recv()
		done <- data
	}()
	n.Broadcast(common.NotifyStateChanged, &common.StateChangedParams{Level: "Slow"})
	<-done

	if n.Count() != 1 {
		t.Fatalf("expected 1 server after successful broadcast, got %d", n.Count())
	}
}

func TestRPCNotifier_Broadcast_PartialFailure(t *testing.T) {
	n := NewRPCNotifier(log.New(io.Discard, "", 0))

	cli1, srv1, cleanup1 := newTestServer(t)
	defer cleanup1()
	cli2, srv2, _ := newTestServer(t)

	n.Register(srv1)
	n.Register(srv2)

	// Disconnect server 2
	cli2.Close()
	_ = srv2.Wait()

	done := make(chan struct{}, 1)
	go func() { _, _ = cli1.Recv(); done <- struct{}{} }()
	n.Broadcast(common.NotifyStateChanged, &common.StateChangedParams{Level: "Normal"})
	<-done

	if n.Count() != 1 {
		t.Fatalf("expected 1 server after partial failure, got %d", n.Count())
	}
}

func TestRPCNotifier_EmitLevelChange(t *testing.T) {
	n := NewRPCNotifier(nil)
	defer n.Close()
	cli, srv, cleanup := newTestServer(t)
	defer cleanup()
	n.Register(srv)

	n.Emit(schedule.EventName, schedule.Stopped.String())
	msg := recvPush(t, cli)
	if msg.Method != common.NotifyStateChanged {
		t.Fatalf("method = %q, want %q", msg.Method, common.NotifyStateChanged)
	}
	var p common.StateChangedParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		t.Fatal(err)
	}
	if p.Level != "Stopped" {
		t.Errorf("level = %q, want Stopped", p.Level)
	}
}

func TestRPCNotifier_EmitPreservesOrder(t *testing.T) {
	n := NewRPCNotifier(nil)
	defer n.Close()
	cli, srv, cleanup := newTestServer(t)
	defer cleanup()
	n.Register(srv)

	levels := []string{"Normal", "Slow", "Stopped"}
	for _, l := range levels {
		n.Emit(schedule.EventName, l)
	}
	for _, want := range levels {
		var p common.StateChangedParams
		_ = json.Unmarshal(recvPush(t, cli).Params, &p)
		if p.Level != want {
			t.Fatalf("got %q, want %q", p.Level, want)
		}
	}
}

func TestRPCNotifier_EmitOtherEvent(t *testing.T) {
	n := NewRPCNotifier(nil)
	defer n.Close()
	cli, srv, cleanup := newTestServer(t)
	defer cleanup()
	n.Register(srv)

	n.Emit("custom.event", map[string]int{"n": 1})
	if msg := recvPush(t, cli); msg.Method != "custom.event" {
		t.Errorf("method = %q, want custom.event", msg.Method)
	}
}

func TestRPCNotifier_EmitAfterCloseDoesNotBlock(t *testing.T) {
	n := NewRPCNotifier(nil)
	n.Close()
	n.Close()
	done := make(chan struct{})
	go func() {
		for i := 0; i < notifyQueueSize*2; i++ {
			n.Emit(schedule.EventName, "Slow")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked after Close")
	}
}

func TestRPCNotifier_ConcurrentRegisterUnregister(t *testing.T) {
	n := NewRPCNotifier(log.New(io.Discard, "", 0))
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cli, srv, _ := newTestServer(t)

			n.Register(srv)
			_ = n.Count()
			n.Unregister(srv)

			cli.Close()
			_ = srv.Wait()
		}()
	}
	wg.Wait()

	if n.Count() != 0 {
		t.Fatalf("expected 0 servers after concurrent register/unregister, got %d", n.Count())
	}
}
