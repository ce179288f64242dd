package usecases

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// nightlyDateLayout is the pre-release date stamp of nightly versions.
const nightlyDateLayout = "20060102"

// ParseVersion parses a strict semantic version, tolerating a leading "v".
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(trimVersionPrefix(s))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid semantic version %q: %w", domain.ErrVersion, s, err)
	}
	return v, nil
}

// CalculateExpectedVersion returns the version a strict reading of bump implies.
// Major, minor and patch bumps clear pre-release and build metadata.
// BumpNone or an unknown bump returns current unchanged.
func CalculateExpectedVersion(current *semver.Version, bump domain.BumpType) *semver.Version {
	switch bump {
	case domain.BumpMajor:
		return semver.New(current.Major()+1, 0, 0, "", "")
	case domain.BumpMinor:
		return semver.New(current.Major(), current.Minor()+1, 0, "", "")
	case domain.BumpPatch:
		return semver.New(current.Major(), current.Minor(), current.Patch()+1, "", "")
	default:
		return current
	}
}

// NightlyVersion turns v into a dated nightly pre-release, e.g. 1.3.0-nightly.20260115.
func NightlyVersion(v *semver.Version, now time.Time) *semver.Version {
	return semver.New(v.Major(), v.Minor(), v.Patch(), "nightly."+now.UTC().Format(nightlyDateLayout), "")
}

func trimVersionPrefix(s string) string {
	if len(s) > 1 && s[0] == 'v' {
		return s[1:]
	}
	return s
}
