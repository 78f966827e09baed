package variant

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// VersionConstraint is a dependency version requirement in Maven notation:
// a bare version ("20.7.0"), an exact version ("[1.2]") or a range such as
// "[8,9)", "[1.0,)" or "(,2.0]".
type VersionConstraint struct {
	raw            string
	lower, upper   *artifactVersion
	lowerInclusive bool
	upperInclusive bool
}

// ParseVersionConstraint parses a Maven style version requirement. Versions
// with fewer than three components are coerced ("8" is 8.0.0) and a fourth
// numeric component is compared after the patch ("20.7.0.1"). Unions of
// several ranges are not supported.
func ParseVersionConstraint(s string) (VersionConstraint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return VersionConstraint{}, errors.New("empty version constraint")
	}

	first, last := s[0], s[len(s)-1]
	if first != '[' && first != '(' {
		v, err := parseArtifactVersion(s)
		if err != nil {
			return VersionConstraint{}, errors.Wrapf(err, "invalid version %q", s)
		}
		return VersionConstraint{raw: s, lower: v, upper: v, lowerInclusive: true, upperInclusive: true}, nil
	}
	if last != ']' && last != ')' {
		return VersionConstraint{}, errors.Errorf("unterminated version range %q", s)
	}

	inner := s[1 : len(s)-1]
	if strings.Contains(inner, "[") || strings.Contains(inner, "(") {
		return VersionConstraint{}, errors.Errorf("version range unions are not supported: %q", s)
	}

	c := VersionConstraint{raw: s, lowerInclusive: first == '[', upperInclusive: last == ']'}
	lowerStr, upperStr, isRange := strings.Cut(inner, ",")
	if !isRange {
		if first != '[' || last != ']' {
			return VersionConstraint{}, errors.Errorf("exact version %q must use square brackets", s)
		}
		upperStr = lowerStr
	}
	lowerStr, upperStr = strings.TrimSpace(lowerStr), strings.TrimSpace(upperStr)
	if strings.Contains(upperStr, ",") {
		return VersionConstraint{}, errors.Errorf("too many bounds in version range %q", s)
	}
	if lowerStr == "" && upperStr == "" {
		return VersionConstraint{}, errors.Errorf("version range %q has no bounds", s)
	}

	var err error
	if lowerStr != "" {
		if c.lower, err = parseArtifactVersion(lowerStr); err != nil {
			return VersionConstraint{}, errors.Wrapf(err, "invalid lower bound in %q", s)
		}
	}
	if upperStr != "" {
		if c.upper, err = parseArtifactVersion(upperStr); err != nil {
			return VersionConstraint{}, errors.Wrapf(err, "invalid upper bound in %q", s)
		}
	}
	if c.lower != nil && c.upper != nil {
		cmp := c.lower.compare(c.upper)
		if cmp > 0 || (cmp == 0 && !(c.lowerInclusive && c.upperInclusive)) {
			return VersionConstraint{}, errors.Errorf("version range %q is empty", s)
		}
	}
	return c, nil
}

// IsPinned reports whether exactly one version satisfies the constraint.
func (c VersionConstraint) IsPinned() bool {
	return c.lower != nil && c.upper != nil && c.lower.compare(c.upper) == 0
}

// Allows reports whether version satisfies the constraint.
func (c VersionConstraint) Allows(version string) (bool, error) {
	v, err := parseArtifactVersion(version)
	if err != nil {
		return false, errors.Wrapf(err, "invalid version %q", version)
	}
	if c.lower != nil {
		cmp := v.compare(c.lower)
		if cmp < 0 || (cmp == 0 && !c.lowerInclusive) {
			return false, nil
		}
	}
	if c.upper != nil {
		cmp := v.compare(c.upper)
		if cmp > 0 || (cmp == 0 && !c.upperInclusive) {
			return false, nil
		}
	}
	return true, nil
}

func (c VersionConstraint) String() string {
	return c.raw
}

// artifactVersion is a semantic version with an optional fourth numeric
// component, as published by some Maven artifacts.
type artifactVersion struct {
	base  *semver.Version
	build uint64
}

func parseArtifactVersion(s string) (*artifactVersion, error) {
	s = strings.TrimSpace(s)
	v := &artifactVersion{}
	if parts := strings.Split(s, "."); len(parts) == 4 && isNumeric(parts[0]) && isNumeric(parts[1]) && isNumeric(parts[2]) {
		build, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid fourth version component %q", parts[3])
		}
		v.build = build
		s = strings.Join(parts[:3], ".")
	}
	sv, err := semver.NewVersion(s)
	if err != nil {
		return nil, err
	}
	v.base = sv
	return v, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (v *artifactVersion) compare(o *artifactVersion) int {
	if cmp := v.base.Compare(o.base); cmp != 0 {
		return cmp
	}
	switch {
	case v.build < o.build:
		return -1
	case v.build > o.build:
		return 1
	}
	return 0
}

// Coordinate identifies a library dependency and its version requirement.
type Coordinate struct {
	Group      string
	Artifact   string
	Constraint VersionConstraint
}

// ParseCoordinate parses "group:artifact:version".
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Coordinate{}, errors.Errorf("invalid dependency coordinate %q, expected group:artifact:version", s)
	}
	constraint, err := ParseVersionConstraint(parts[2])
	if err != nil {
		return Coordinate{}, errors.Wrapf(err, "invalid dependency %s:%s", parts[0], parts[1])
	}
	return Coordinate{Group: parts[0], Artifact: parts[1], Constraint: constraint}, nil
}

// Module returns "group:artifact".
func (c Coordinate) Module() string {
	return c.Group + ":" + c.Artifact
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s:%s", c.Module(), c.Constraint)
}

// DependencyResolver is the external dependency resolution engine. It picks
// the concrete version used for a coordinate.
type DependencyResolver interface {
	ResolveVersion(ctx context.Context, dep Coordinate) (string, error)
}

// ResolvedDependency pairs a coordinate with the version the resolver chose.
type ResolvedDependency struct {
	Coordinate Coordinate
	Version    string
}

// CheckResolved asks resolver for every dependency and fails with a
// ConfigurationError when a chosen version falls outside its constraint.
func CheckResolved(ctx context.Context, resolver DependencyResolver, deps []Coordinate) ([]ResolvedDependency, error) {
	resolved := make([]ResolvedDependency, 0, len(deps))
	for _, dep := range deps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		version, err := resolver.ResolveVersion(ctx, dep)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve %s", dep.Module())
		}
		ok, err := dep.Constraint.Allows(version)
		if err != nil {
			return nil, errors.Wrapf(err, "resolver returned an invalid version for %s", dep.Module())
		}
		if !ok {
			return nil, configErrorf("", "dependencies", "%s resolved to %s, outside %s", dep.Module(), version, dep.Constraint)
		}
		resolved = append(resolved, ResolvedDependency{Coordinate: dep, Version: version})
	}
	return resolved, nil
}

// LockedVersions is a DependencyResolver backed by versions recorded by the
// external resolver, keyed by "group:artifact".
type LockedVersions map[string]string

// LoadLockedVersions reads a YAML mapping of "group:artifact" to version.
func LoadLockedVersions(path string) (LockedVersions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read lock file %s", path)
	}
	var locked LockedVersions
	if err := yaml.Unmarshal(data, &locked); err != nil {
		return nil, errors.Wrapf(err, "failed to parse lock file %s", path)
	}
	return locked, nil
}

// ResolveVersion returns the locked version for dep.
func (l LockedVersions) ResolveVersion(_ context.Context, dep Coordinate) (string, error) {
	version, ok := l[dep.Module()]
	if !ok {
		return "", errors.Errorf("no locked version for %s", dep.Module())
	}
	return version, nil
}
