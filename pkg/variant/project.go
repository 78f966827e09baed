package variant

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ProjectConfig is the application identity shared by every build variant.
// It is loaded once and never modified afterwards.
type ProjectConfig struct {
	Namespace     string
	ApplicationID string
	MinSDK        int
	TargetSDK     int
	CompileSDK    int
	NDKVersion    string
	VersionCode   int
	VersionName   string
	JavaVersion   string // source and target compatibility, e.g. "11"
	JVMTarget     string
	Plugins       []string
	Dependencies  []Coordinate
}

// FrameworkDefaults holds the values the framework build plugin supplies for
// fields the project file leaves unset.
type FrameworkDefaults struct {
	CompileSDK  int
	TargetSDK   int
	NDKVersion  string
	VersionCode int
	VersionName string
}

var applicationIDSegment = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// WithDefaults returns a copy of the project with unset fields taken from the
// framework defaults. The receiver is left untouched.
func (p ProjectConfig) WithDefaults(d FrameworkDefaults) *ProjectConfig {
	out := p
	if out.CompileSDK == 0 {
		out.CompileSDK = d.CompileSDK
	}
	if out.TargetSDK == 0 {
		out.TargetSDK = d.TargetSDK
	}
	if out.NDKVersion == "" {
		out.NDKVersion = d.NDKVersion
	}
	if out.VersionCode == 0 {
		out.VersionCode = d.VersionCode
	}
	if out.VersionName == "" {
		out.VersionName = d.VersionName
	}
	if out.Namespace == "" {
		out.Namespace = out.ApplicationID
	}
	if out.JVMTarget == "" {
		out.JVMTarget = out.JavaVersion
	}
	out.Plugins = append([]string(nil), p.Plugins...)
	out.Dependencies = append([]Coordinate(nil), p.Dependencies...)
	return &out
}

// Validate checks the identity and SDK bounds of the project.
func (p *ProjectConfig) Validate() error {
	if err := validateApplicationID(p.ApplicationID); err != nil {
		return err
	}
	if p.MinSDK < 1 {
		return configErrorf("", "minSdk", "must be at least 1, got %d", p.MinSDK)
	}
	if p.TargetSDK < p.MinSDK {
		return configErrorf("", "targetSdk", "%d is below minSdk %d", p.TargetSDK, p.MinSDK)
	}
	if p.CompileSDK < p.TargetSDK {
		return configErrorf("", "compileSdk", "%d is below targetSdk %d", p.CompileSDK, p.TargetSDK)
	}
	if p.VersionCode < 1 {
		return configErrorf("", "versionCode", "must be at least 1, got %d", p.VersionCode)
	}
	if strings.TrimSpace(p.VersionName) == "" {
		return configErrorf("", "versionName", "is required")
	}
	if p.JavaVersion != "" && p.JVMTarget != "" && p.JavaVersion != p.JVMTarget {
		return configErrorf("", "jvmTarget", "%q does not match Java version %q", p.JVMTarget, p.JavaVersion)
	}
	return ValidatePluginOrder(p.Plugins)
}

func validateApplicationID(id string) error {
	if id == "" {
		return configErrorf("", "applicationId", "is required")
	}
	segments := strings.Split(id, ".")
	if len(segments) < 2 {
		return configErrorf("", "applicationId", "%q needs at least two segments", id)
	}
	for _, s := range segments {
		if !applicationIDSegment.MatchString(s) {
			return configErrorf("", "applicationId", "invalid segment %q in %q", s, id)
		}
	}
	return nil
}

// ParseFrameworkVersion splits a framework version string of the form
// "name+code" (for example "1.2.3+4") into the version name and code.
// A missing build number yields code 1.
func ParseFrameworkVersion(s string) (name string, code int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, errors.New("empty framework version")
	}
	name, build, found := strings.Cut(s, "+")
	if name == "" {
		return "", 0, errors.Errorf("framework version %q has no name", s)
	}
	if !found {
		return name, 1, nil
	}
	code, err = strconv.Atoi(build)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid build number in framework version %q", s)
	}
	if code < 1 {
		return "", 0, errors.Errorf("build number in framework version %q must be positive", s)
	}
	return name, code, nil
}
