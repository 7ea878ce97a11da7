package cmd

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	daemonpkg "github.com/warpdl/warpsched/internal/daemon"
	"github.com/warpdl/warpsched/pkg/logger"
	"github.com/warpdl/warpsched/pkg/schedule"
)

const testSecret = "cmd-test-secret"

// monday9 falls in the Monday 09:00 slot.
var monday9 = time.Date(2024, 1, 8, 9, 15, 0, 0, time.Local)

// newContext builds a command context with flags applied and args parsed.
func newContext(app *cli.App, args []string, name string, flags ...cli.Flag) *cli.Context {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	for _, f := range flags {
		f.Apply(set)
	}
	_ = set.Parse(args)
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: name}
	return ctx
}

// captureStdout runs fn and returns what it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()
	defer func() { os.Stdout = old }()
	fn()
	w.Close()
	return <-done
}

// startDaemon runs a daemon on an ephemeral port and points the client
// flags at it.
func startDaemon(t *testing.T) *daemonpkg.Runner {
	t.Helper()
	r := daemonpkg.New(&daemonpkg.Config{
		ConfigDir: t.TempDir(),
		Addr:      "127.0.0.1:0",
		Secret:    testSecret,
		Baseline:  schedule.Limits{Download: 1000, Upload: 100, Active: 5},
	}, &daemonpkg.Dependencies{
		Logger: logger.NewNopLogger(),
		Fs:     afero.NewMemMapFs(),
		Clock:  func() time.Time { return monday9 },
	})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Start(ctx) }()
	deadline := time.Now().Add(2 * time.Second)
	for !r.IsRunning() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("daemon did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	oldAddr, oldSecret := rpcAddr, rpcSecret
	rpcAddr, rpcSecret = r.Addr().String(), testSecret
	t.Cleanup(func() {
		rpcAddr, rpcSecret = oldAddr, oldSecret
		cancel()
		<-errCh
	})
	return r
}
