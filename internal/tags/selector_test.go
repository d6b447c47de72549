package tags_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dreschagin/git-tag-exporter/internal/scm"
	"github.com/dreschagin/git-tag-exporter/internal/tags"
)

var (
	rcPattern  = tags.MustCompilePattern(`^.*-rc\..*$`)
	relPattern = tags.MustCompilePattern(`^\d+\.\d+\.\d+$`)
)

func named(names ...string) []scm.Tag {
	out := make([]scm.Tag, len(names))
	for i, n := range names {
		out[i] = scm.Tag{Name: n}
	}
	return out
}

func TestNewSnapshot_KeepsSemverInOrder(t *testing.T) {
	s := tags.NewSnapshot("app", "git@x:app.git", "App", named("1.0.0", "1.1.0-rc.1", "v2", "bad-tag"))

	gt.A(t, scm.TagNames(s.SemverTags)).Equal([]string{"1.0.0", "1.1.0-rc.1"})
	gt.Equal(t, s.Fetched, 4)
	gt.False(t, s.Failed())
}

func TestSelect_FirstInUpstreamOrder(t *testing.T) {
	in := named("1.0.0", "1.2.0-rc.1", "1.3.0-rc.1", "2.0.0")

	got, ok := tags.Select(in, rcPattern, tags.PolicyFirst)
	gt.True(t, ok)
	gt.Equal(t, got.Name, "1.2.0-rc.1")

	got, ok = tags.Select(in, relPattern, tags.PolicyFirst)
	gt.True(t, ok)
	gt.Equal(t, got.Name, "1.0.0")
}

func TestSelect_Highest(t *testing.T) {
	in := named("1.0.0", "1.10.0-rc.1", "1.2.0-rc.1", "2.0.0", "1.9.9")

	got, ok := tags.Select(in, rcPattern, tags.PolicyHighest)
	gt.True(t, ok)
	gt.Equal(t, got.Name, "1.10.0-rc.1")

	got, ok = tags.Select(in, relPattern, tags.PolicyHighest)
	gt.True(t, ok)
	gt.Equal(t, got.Name, "2.0.0")
}

func TestSelect_NoMatch(t *testing.T) {
	for _, policy := range []tags.Policy{tags.PolicyFirst, tags.PolicyHighest} {
		_, ok := tags.Select(named("v1.0.0", "1.0.0"), rcPattern, policy)
		gt.False(t, ok)

		_, ok = tags.Select(nil, relPattern, policy)
		gt.False(t, ok)
	}
}

func TestSelect_ResultIsMemberAndMatches(t *testing.T) {
	inputs := [][]string{
		{"1.0.0", "1.1.0-rc.1", "v2", "bad-tag"},
		{"0.1.0-rc.1", "0.1.0-rc.2", "0.1.0"},
		{"x-rc.1", "1.0.0-rc.1+build.5"},
		{},
	}

	for _, names := range inputs {
		in := named(names...)
		for _, p := range []*tags.Pattern{rcPattern, relPattern} {
			for _, policy := range []tags.Policy{tags.PolicyFirst, tags.PolicyHighest} {
				got, ok := tags.Select(in, p, policy)
				if !ok {
					continue
				}
				gt.A(t, names).Has(got.Name)
				gt.True(t, p.Match(got.Name))
				gt.True(t, tags.IsSemVer(got.Name))
			}
		}
	}
}

func TestSelectAll_IsolatesCategories(t *testing.T) {
	base := []tags.Snapshot{
		tags.NewSnapshot("app", "git@x:app.git", "App", named("1.0.0", "1.1.0-rc.1", "v2", "bad-tag")),
	}

	rc := tags.SelectAll(base, rcPattern, tags.PolicyFirst)
	rel := tags.SelectAll(base, relPattern, tags.PolicyFirst)

	got, ok := rc[0].Selected()
	gt.True(t, ok)
	gt.Equal(t, got, "1.1.0-rc.1")

	got, ok = rel[0].Selected()
	gt.True(t, ok)
	gt.Equal(t, got, "1.0.0")

	// narrowing never touches the source snapshots
	gt.A(t, scm.TagNames(base[0].SemverTags)).Equal([]string{"1.0.0", "1.1.0-rc.1"})

	rc[0].SemverTags[0].Name = "mutated"
	gt.Equal(t, base[0].SemverTags[1].Name, "1.1.0-rc.1")
	got, _ = rel[0].Selected()
	gt.Equal(t, got, "1.0.0")
}

func TestSelectAll_AbsentSelection(t *testing.T) {
	base := []tags.Snapshot{
		tags.NewSnapshot("app", "repo", "App", named("2.0.0")),
	}

	rc := tags.SelectAll(base, rcPattern, tags.PolicyFirst)
	_, ok := rc[0].Selected()
	gt.False(t, ok)
	gt.Equal(t, rc[0].ProjectName, "app")
}

func TestParsePolicy(t *testing.T) {
	p, err := tags.ParsePolicy("")
	gt.NoError(t, err)
	gt.Equal(t, p, tags.PolicyFirst)

	p, err = tags.ParsePolicy("Highest")
	gt.NoError(t, err)
	gt.Equal(t, p, tags.PolicyHighest)

	_, err = tags.ParsePolicy("newest")
	gt.Error(t, err)
}
