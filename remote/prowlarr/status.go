package prowlarr

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// minimumVersion is the oldest instance version the section schemas are
// known to be accurate for.
var minimumVersion = semver.MustParse("1.0.0")

// Status is the subset of /api/v1/system/status the client cares about.
type Status struct {
	Version      string `json:"version"`
	InstanceName string `json:"instanceName"`
	AppName      string `json:"appName"`
	Branch       string `json:"branch"`
}

// SystemStatus reads instance metadata. It doubles as the connectivity and
// credential check before a run.
func (c *Client) SystemStatus(ctx context.Context) (Status, error) {
	var status Status
	if err := c.getJSON(ctx, "/api/v1/system/status", &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// CheckVersion fails when the instance reports a version older than the
// supported minimum. Unparseable versions are rejected rather than assumed
// compatible.
func (c *Client) CheckVersion(ctx context.Context) (Status, error) {
	status, err := c.SystemStatus(ctx)
	if err != nil {
		return Status{}, err
	}
	version, err := semver.NewVersion(coreVersion(status.Version))
	if err != nil {
		return Status{}, remoteRejected(fmt.Sprintf("instance reports unparseable version %q", status.Version), err)
	}
	if version.LessThan(minimumVersion) {
		return Status{}, validationError(
			fmt.Sprintf("instance version %s is older than the supported minimum %s", version, minimumVersion),
			nil,
		)
	}
	c.log.Debug().Str("version", status.Version).Msg("instance version accepted")
	return status, nil
}

// coreVersion trims the build component off four-part instance versions
// (e.g. "1.21.2.4649") so they parse as semver.
func coreVersion(version string) string {
	parts := strings.SplitN(version, ".", 4)
	if len(parts) == 4 {
		return strings.Join(parts[:3], ".")
	}
	return version
}
