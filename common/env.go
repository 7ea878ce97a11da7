// Package common provides shared types and constants used across the
// warpsched daemon, its RPC server and clients.
package common

// Environment variable names for configuration.
const (
	// ConfigDirEnv overrides the directory holding the config store and
	// the RPC secret fallback file.
	ConfigDirEnv = "WARPSCHED_CONFIG_DIR"

	// RPCSecretEnv supplies the bearer token for the RPC endpoints.
	RPCSecretEnv = "WARPSCHED_RPC_SECRET"

	// RPCAddrEnv is the listen address of the daemon and the address
	// clients dial.
	RPCAddrEnv = "WARPSCHED_RPC_ADDR"

	// StoreEnv selects the config store backend: "file" or "sqlite".
	StoreEnv = "WARPSCHED_STORE"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "WARPSCHED_DEBUG"
)
