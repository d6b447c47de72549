package tags

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/woozymasta/semver"

	"github.com/dreschagin/git-tag-exporter/internal/scm"
)

// Policy decides which valid tag represents a project.
type Policy string

const (
	// PolicyFirst takes the first valid tag in the order the API returned them.
	PolicyFirst Policy = "first"
	// PolicyHighest takes the valid tag with the highest SemVer precedence.
	PolicyHighest Policy = "highest"
)

// ParsePolicy maps a config value to a Policy. Empty means PolicyFirst.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyFirst:
		return PolicyFirst, nil
	case PolicyHighest:
		return PolicyHighest, nil
	default:
		return "", goerr.New("unknown selection policy", goerr.V("policy", s))
	}
}

// Select returns the representative tag among tags that are SemVer and match
// p, or false when none qualifies.
func Select(tags []scm.Tag, p *Pattern, policy Policy) (scm.Tag, bool) {
	var (
		best    scm.Tag
		bestVer semver.Semver
		found   bool
	)

	for _, t := range tags {
		if !IsSemVer(t.Name) || !p.Match(t.Name) {
			continue
		}

		if policy != PolicyHighest {
			return t, true
		}

		v, ok := semver.Parse(t.Name)
		if !ok || !v.IsValid() {
			continue
		}
		if !found || v.Compare(bestVer) > 0 {
			best, bestVer, found = t, v, true
		}
	}

	return best, found
}

// SelectAll narrows a deep copy of every snapshot to its selected tag. The
// input is never modified. Failed snapshots come out with no selection.
func SelectAll(snapshots []Snapshot, p *Pattern, policy Policy) []Snapshot {
	out := CloneAll(snapshots)
	for i := range out {
		t, ok := Select(out[i].SemverTags, p, policy)
		if !ok {
			out[i].SemverTags = nil
			continue
		}
		out[i].SemverTags = []scm.Tag{t}
	}
	return out
}
