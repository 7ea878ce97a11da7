package server

import (
	"context"
	"errors"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/warpsched/common"
	"github.com/warpdl/warpsched/internal/store"
	"github.com/warpdl/warpsched/pkg/schedule"
)

// Custom JSON-RPC error codes for scheduler operations.
const (
	codeEngineClosed       = jrpc2.Code(-32001)
	codeStoreFailed        = jrpc2.Code(-32002)
	codeHistoryUnavailable = jrpc2.Code(-32003)
	codeInvalidParams      = jrpc2.Code(-32602)
)

// Scheduler is the engine surface exposed over RPC.
type Scheduler interface {
	GetConfig() *schedule.Config
	ApplyConfig(u *schedule.ConfigUpdate) (*schedule.Config, error)
	ApplyRules(rules []schedule.Rule, reset bool) (*schedule.Config, error)
	Status() schedule.Status
}

// HistorySource lists past transitions, newest first.
type HistorySource interface {
	History(ctx context.Context, limit int) ([]store.Transition, error)
}

// PauseReporter reports the session run state.
type PauseReporter interface {
	Paused() bool
}

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // Auth token (required -- empty means RPC disabled)
	Version   string // Daemon version
	Commit    string // Git commit
	BuildType string // Build type
}

// RPCServer manages the JSON-RPC 2.0 bridge and method handlers.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	secret    string
	version   string
	commit    string
	buildType string
	engine    Scheduler
	history   HistorySource
	session   PauseReporter
}

// NewRPCServer creates a new RPCServer with method handlers and HTTP bridge.
// history and session may be nil.
func NewRPCServer(cfg *RPCConfig, eng Scheduler, history HistorySource, session PauseReporter) *RPCServer {
	rs := &RPCServer{
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
		engine:    eng,
		history:   history,
		session:   session,
	}

	rs.methods = handler.Map{
		common.MethodGetVersion: handler.New(rs.systemGetVersion),
		common.MethodGetConfig:  handler.New(rs.schedulerGetConfig),
		common.MethodSetConfig:  handler.New(rs.schedulerSetConfig),
		common.MethodGetState:   handler.New(rs.schedulerGetState),
		common.MethodApplyRules: handler.New(rs.schedulerApplyRules),
		common.MethodHistory:    handler.New(rs.schedulerHistory),
	}

	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	return &common.VersionResult{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.buildType,
	}, nil
}

func (rs *RPCServer) schedulerGetConfig(_ context.Context) (*schedule.Config, error) {
	return rs.engine.GetConfig(), nil
}

// schedulerSetConfig merges the supplied fields into the configuration.
func (rs *RPCServer) schedulerSetConfig(_ context.Context, u *schedule.ConfigUpdate) (*schedule.Config, error) {
	cfg, err := rs.engine.ApplyConfig(u)
	if err != nil {
		return nil, rpcError(err)
	}
	return cfg, nil
}

func (rs *RPCServer) schedulerGetState(_ context.Context) (*common.StateResult, error) {
	return rs.state(), nil
}

func (rs *RPCServer) state() *common.StateResult {
	paused := false
	if rs.session != nil {
		paused = rs.session.Paused()
	}
	return common.NewStateResult(rs.engine.Status(), paused)
}

// schedulerApplyRules compiles cron rules onto the table and applies it.
func (rs *RPCServer) schedulerApplyRules(_ context.Context, p *common.ApplyRulesParams) (*schedule.Config, error) {
	if p == nil || len(p.Rules) == 0 {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: rules"}
	}
	cfg, err := rs.engine.ApplyRules(p.Rules, p.Reset)
	if err != nil {
		return nil, rpcError(err)
	}
	return cfg, nil
}

func (rs *RPCServer) schedulerHistory(ctx context.Context, p *common.HistoryParams) (*common.HistoryResult, error) {
	if rs.history == nil {
		return nil, &jrpc2.Error{Code: codeHistoryUnavailable, Message: "history requires the sqlite store"}
	}
	limit := 0
	if p != nil {
		limit = p.Limit
	}
	list, err := rs.history.History(ctx, limit)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeStoreFailed, Message: err.Error()}
	}
	out := &common.HistoryResult{Transitions: make([]common.HistoryEntry, 0, len(list))}
	for _, t := range list {
		out.Transitions = append(out.Transitions, common.HistoryEntry{
			ID:      t.ID,
			At:      t.At,
			From:    t.From.String(),
			To:      t.To.String(),
			Trigger: t.Trigger,
		})
	}
	return out, nil
}

// rpcError maps engine errors to JSON-RPC errors.
func rpcError(err error) error {
	switch {
	case errors.Is(err, schedule.ErrConfigShape),
		errors.Is(err, schedule.ErrInvalidLimit),
		errors.Is(err, schedule.ErrInvalidRule):
		return &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, schedule.ErrEngineClosed):
		return &jrpc2.Error{Code: codeEngineClosed, Message: err.Error()}
	default:
		return &jrpc2.Error{Code: codeStoreFailed, Message: err.Error()}
	}
}

// Close shuts down the jrpc2 bridge, releasing internal goroutines.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
}
