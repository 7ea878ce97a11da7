package schedcli

import (
	"github.com/warpdl/warpsched/common"
	"github.com/warpdl/warpsched/pkg/schedule"
)

func invoke[T any](c *Client, method string, params any) (*T, error) {
	var d T
	if err := c.call(method, params, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Version returns the daemon build information.
func (c *Client) Version() (*common.VersionResult, error) {
	return invoke[common.VersionResult](c, common.MethodGetVersion, nil)
}

func (c *Client) GetConfig() (*schedule.Config, error) {
	return invoke[schedule.Config](c, common.MethodGetConfig, nil)
}

// SetConfig merges u into the daemon configuration and returns the result.
func (c *Client) SetConfig(u *schedule.ConfigUpdate) (*schedule.Config, error) {
	return invoke[schedule.Config](c, common.MethodSetConfig, u)
}

func (c *Client) GetState() (*common.StateResult, error) {
	return invoke[common.StateResult](c, common.MethodGetState, nil)
}

// ApplyRules compiles cron rules into the policy table. With reset the
// rules start from the default table instead of the current one.
func (c *Client) ApplyRules(rules []schedule.Rule, reset bool) (*schedule.Config, error) {
	return invoke[schedule.Config](c, common.MethodApplyRules, &common.ApplyRulesParams{
		Rules: rules,
		Reset: reset,
	})
}

// History returns up to limit recent transitions, newest first.
func (c *Client) History(limit int) (*common.HistoryResult, error) {
	return invoke[common.HistoryResult](c, common.MethodHistory, &common.HistoryParams{Limit: limit})
}
