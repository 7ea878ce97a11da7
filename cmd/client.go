package cmd

import (
	"os"

	"github.com/warpdl/warpsched/common"
	"github.com/warpdl/warpsched/pkg/logger"
	"github.com/warpdl/warpsched/pkg/schedcli"
	"github.com/warpdl/warpsched/pkg/secret"
)

// lookupSecret returns the secret a local daemon stored on first start.
var lookupSecret = func() (string, error) {
	return secret.New(resolvedConfigDir(), logger.NewNopLogger()).Get()
}

// resolvedConfigDir is --config-dir, falling back to the environment and
// the per-user default the daemon uses.
func resolvedConfigDir() string {
	if configDir != "" {
		return configDir
	}
	return common.ConfigDir()
}

// newClient connects to the daemon at --addr. Without --secret the token is
// read from the keyring the daemon writes to.
func newClient() (*schedcli.Client, error) {
	token := rpcSecret
	if token == "" {
		var err error
		if token, err = lookupSecret(); err != nil {
			return nil, err
		}
	}
	c, err := schedcli.NewClient(rpcAddr, token)
	if err != nil {
		return nil, err
	}
	c.CheckVersionMismatch(os.Stderr, currentBuildArgs.Version)
	return c, nil
}
