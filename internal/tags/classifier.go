// Package tags classifies source-control tags into release categories and
// picks the representative tag of each project per category.
package tags

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// semverRe is the SemVer 2.0 grammar from semver.org. No leading "v", no
// shorthand forms, no leading zeros in numeric identifiers.
var semverRe = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
	`(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?` +
	`(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

// IsSemVer reports whether tag is strict SemVer 2.0 syntax.
func IsSemVer(tag string) bool {
	return semverRe.MatchString(tag)
}

// Pattern is a compiled category pattern. Matching is anchored at the start
// of the tag name and unanchored at the end unless the pattern says so.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// CompilePattern compiles a category pattern.
func CompilePattern(raw string) (*Pattern, error) {
	re, err := regexp.Compile(`^(?:` + raw + `)`)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid tag pattern", goerr.V("pattern", raw))
	}
	return &Pattern{raw: raw, re: re}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(raw string) *Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the literal tag name matches the pattern.
func (p *Pattern) Match(tagName string) bool {
	return p.re.MatchString(tagName)
}

func (p *Pattern) String() string {
	return p.raw
}

// MatchesPattern compiles pattern and matches it against tagName.
func MatchesPattern(tagName, pattern string) (bool, error) {
	p, err := CompilePattern(pattern)
	if err != nil {
		return false, err
	}
	return p.Match(tagName), nil
}
