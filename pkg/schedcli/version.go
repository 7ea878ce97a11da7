package schedcli

import (
	"fmt"
	"io"
	"os"
)

// VersionCheckEnv suppresses version mismatch warnings when set to any
// non-empty value.
const VersionCheckEnv = "WARPSCHED_SUPPRESS_VERSION_CHECK"

// CheckVersionMismatch writes a warning to w when the daemon reports a
// version other than expectedVersion. It never fails the caller.
func (c *Client) CheckVersionMismatch(w io.Writer, expectedVersion string) {
	if expectedVersion == "" || os.Getenv(VersionCheckEnv) != "" {
		return
	}
	v, err := c.Version()
	if err != nil {
		fmt.Fprintf(w, "Warning: could not verify daemon version: %v\n", err)
		return
	}
	if v.Version != expectedVersion {
		fmt.Fprintf(w, "Warning: CLI version (%s) differs from daemon version (%s)\n",
			expectedVersion, v.Version)
		fmt.Fprintf(w, "Restart 'warpsched daemon' to pick up the new version.\n")
	}
}
