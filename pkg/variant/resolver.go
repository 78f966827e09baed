package variant

import (
	"regexp"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

var buildTypeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// BuildVariant is the resolved configuration of one build invocation.
type BuildVariant struct {
	Name string

	// Passed through unchanged from the ProjectConfig.
	ApplicationID string
	Namespace     string
	MinSDK        int
	TargetSDK     int
	CompileSDK    int
	VersionCode   int
	VersionName   string

	// Points into the SigningStore, never a copy.
	SigningIdentity *SigningIdentity
	// SigningFallback is set when the debug identity was substituted because
	// the build type has no identity of its own.
	SigningFallback bool

	MinifyEnabled          bool
	ShrinkResourcesEnabled bool
	Debuggable             bool
}

// Resolver turns a build type name into a BuildVariant.
type Resolver struct {
	Policy Policy
	// Strict refuses to sign any build type other than debug with the debug
	// identity, whether substituted or explicitly assigned.
	Strict bool
	// Logger receives fallback notices. The process-wide grip logger is used
	// when nil.
	Logger grip.Journaler
}

// NewResolver returns a resolver using DefaultPolicy that allows the debug
// signing fallback.
func NewResolver() *Resolver {
	return &Resolver{Policy: DefaultPolicy()}
}

// Resolve resolves buildType with the default resolver.
func Resolve(buildType string, project *ProjectConfig, identities *SigningStore) (*BuildVariant, error) {
	return NewResolver().Resolve(buildType, project, identities)
}

// Resolve looks up the signing identity and packaging flags for buildType.
// It fails with a ConfigurationError when neither an identity for buildType
// nor the debug identity exists.
func (r *Resolver) Resolve(buildType string, project *ProjectConfig, identities *SigningStore) (*BuildVariant, error) {
	if !buildTypeNamePattern.MatchString(buildType) {
		return nil, configErrorf(buildType, "buildType", "name must be a non-empty identifier")
	}
	if project == nil {
		return nil, configErrorf(buildType, "project", "no project configuration")
	}
	if err := project.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid project configuration")
	}

	policy := r.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid build type policy")
	}

	identity, fallback, err := r.selectIdentity(buildType, project, identities)
	if err != nil {
		return nil, err
	}

	flags := policy.Lookup(buildType)
	return &BuildVariant{
		Name:                   buildType,
		ApplicationID:          project.ApplicationID,
		Namespace:              project.Namespace,
		MinSDK:                 project.MinSDK,
		TargetSDK:              project.TargetSDK,
		CompileSDK:             project.CompileSDK,
		VersionCode:            project.VersionCode,
		VersionName:            project.VersionName,
		SigningIdentity:        identity,
		SigningFallback:        fallback,
		MinifyEnabled:          flags.MinifyEnabled,
		ShrinkResourcesEnabled: flags.ShrinkResourcesEnabled,
		Debuggable:             flags.Debuggable,
	}, nil
}

func (r *Resolver) selectIdentity(buildType string, project *ProjectConfig, identities *SigningStore) (*SigningIdentity, bool, error) {
	if name, ok := identities.OverrideFor(buildType); ok {
		id, found := identities.Get(name)
		if !found {
			return nil, false, configErrorf(buildType, "signingConfig", "unknown signing identity %q", name)
		}
		if name == DebugIdentityName && buildType != DebugIdentityName {
			if r.Strict {
				return nil, false, configErrorf(buildType, "signingConfig", "debug signing identity is not allowed under a strict policy")
			}
			r.notice(message.Fields{
				"message":        "build type explicitly signed with debug identity",
				"build_type":     buildType,
				"identity":       name,
				"application_id": project.ApplicationID,
			})
		}
		return id, false, nil
	}

	if id, ok := identities.Get(buildType); ok {
		return id, false, nil
	}

	debug, ok := identities.Get(DebugIdentityName)
	if !ok {
		return nil, false, configErrorf(buildType, "signingConfig",
			"no signing identity named %q and no %q fallback identity", buildType, DebugIdentityName)
	}
	if r.Strict {
		return nil, false, configErrorf(buildType, "signingConfig",
			"no signing identity named %q and debug fallback is not allowed under a strict policy", buildType)
	}

	r.warning(message.Fields{
		"message":        "falling back to debug signing identity",
		"build_type":     buildType,
		"identity":       debug.Name,
		"key_alias":      debug.Alias,
		"application_id": project.ApplicationID,
	})
	return debug, true, nil
}

func (r *Resolver) warning(m message.Fields) {
	if r.Logger != nil {
		r.Logger.Warning(m)
		return
	}
	grip.Warning(m)
}

func (r *Resolver) notice(m message.Fields) {
	if r.Logger != nil {
		r.Logger.Notice(m)
		return
	}
	grip.Notice(m)
}
