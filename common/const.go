package common

import (
	"os"
	"path/filepath"
)

// JSON-RPC method names.
const (
	MethodGetVersion = "system.getVersion"
	MethodGetConfig  = "scheduler.getConfig"
	MethodSetConfig  = "scheduler.setConfig"
	MethodGetState   = "scheduler.getState"
	MethodApplyRules = "scheduler.applyRules"
	MethodHistory    = "scheduler.history"
)

// NotifyStateChanged is pushed to WebSocket clients on every level change.
const NotifyStateChanged = "scheduler.stateChanged"

// Store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

const (
	DefaultRPCAddr = "127.0.0.1:6807"
	AppName        = "warpsched"
)

// ConfigDir returns the configuration directory, from ConfigDirEnv if set,
// otherwise a "warpsched" directory under the user config dir.
func ConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, AppName)
}

// RPCAddr returns the RPC address from RPCAddrEnv or DefaultRPCAddr.
func RPCAddr() string {
	if addr := os.Getenv(RPCAddrEnv); addr != "" {
		return addr
	}
	return DefaultRPCAddr
}
