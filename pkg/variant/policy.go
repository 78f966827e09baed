package variant

import "sort"

// BuildTypePolicy holds the per build type packaging flags.
type BuildTypePolicy struct {
	MinifyEnabled          bool
	ShrinkResourcesEnabled bool
	Debuggable             bool
}

// Policy maps build type names to their flags.
type Policy map[string]BuildTypePolicy

// DefaultPolicy mirrors the project's current build types: neither debug nor
// release builds are minified or shrunk.
func DefaultPolicy() Policy {
	return Policy{
		"debug":   {Debuggable: true},
		"release": {},
	}
}

// RecommendedPolicy enables code and resource shrinking for release builds.
func RecommendedPolicy() Policy {
	return Policy{
		"debug":   {Debuggable: true},
		"release": {MinifyEnabled: true, ShrinkResourcesEnabled: true},
	}
}

// Lookup returns the flags for buildType. Build types missing from the table
// get all flags off.
func (p Policy) Lookup(buildType string) BuildTypePolicy {
	return p[buildType]
}

// Merge returns a copy of p with the entries of other replacing its own.
func (p Policy) Merge(other Policy) Policy {
	merged := make(Policy, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Validate rejects entries that shrink resources without minifying code;
// resource shrinking depends on the code shrinker's usage graph.
func (p Policy) Validate() error {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if bt := p[name]; bt.ShrinkResourcesEnabled && !bt.MinifyEnabled {
			return configErrorf(name, "shrinkResources", "requires minifyEnabled")
		}
	}
	return nil
}
