package tags

import (
	"github.com/dreschagin/git-tag-exporter/internal/scm"
)

// Snapshot is the classified view of one project in one poll cycle.
// SemverTags holds the tags that passed IsSemVer; after selection it holds
// at most one tag.
type Snapshot struct {
	ProjectName string
	Repository  string
	SemverTags  []scm.Tag
	// Fetched is the number of tags returned upstream before filtering.
	Fetched int

	// Source names the configured project behind an error record.
	Source string
	Err    error
}

// NewSnapshot keeps the SemVer tags of a fetched project, preserving order.
func NewSnapshot(projectName, repository, source string, fetched []scm.Tag) Snapshot {
	s := Snapshot{
		ProjectName: projectName,
		Repository:  repository,
		Source:      source,
		SemverTags:  []scm.Tag{},
		Fetched:     len(fetched),
	}
	for _, t := range fetched {
		if IsSemVer(t.Name) {
			s.SemverTags = append(s.SemverTags, t)
		}
	}
	return s
}

// Failed reports whether the snapshot stands for a failed fetch.
func (s Snapshot) Failed() bool {
	return s.Err != nil
}

// Selected returns the selected tag name once the snapshot has been narrowed.
func (s Snapshot) Selected() (string, bool) {
	if len(s.SemverTags) == 0 {
		return "", false
	}
	return s.SemverTags[0].Name, true
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.SemverTags != nil {
		out.SemverTags = make([]scm.Tag, len(s.SemverTags))
		for i, t := range s.SemverTags {
			out.SemverTags[i] = t
			if t.CreatedAt != nil {
				ts := *t.CreatedAt
				out.SemverTags[i].CreatedAt = &ts
			}
		}
	}
	return out
}

// CloneAll deep-copies every snapshot.
func CloneAll(in []Snapshot) []Snapshot {
	out := make([]Snapshot, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
