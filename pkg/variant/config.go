package variant

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// yamlConfig represents the raw project file structure
type yamlConfig struct {
	Project       yamlProject              `yaml:"project"`
	Framework     yamlFramework            `yaml:"framework"`
	Plugins       []string                 `yaml:"plugins"`
	Signing       yamlSigning              `yaml:"signing"`
	BuildTypes    map[string]yamlBuildType `yaml:"buildTypes"`
	Dependencies  []string                 `yaml:"dependencies"`
	StrictSigning bool                     `yaml:"strictSigning"`
}

type yamlProject struct {
	Namespace     string `yaml:"namespace"`
	ApplicationID string `yaml:"applicationId"`
	MinSDK        int    `yaml:"minSdk"`
	TargetSDK     int    `yaml:"targetSdk"`
	CompileSDK    int    `yaml:"compileSdk"`
	NDKVersion    string `yaml:"ndkVersion"`
	VersionCode   int    `yaml:"versionCode"`
	VersionName   string `yaml:"versionName"`
	JavaVersion   string `yaml:"javaVersion"`
	JVMTarget     string `yaml:"jvmTarget"`
}

type yamlFramework struct {
	CompileSDK int    `yaml:"compileSdk"`
	TargetSDK  int    `yaml:"targetSdk"`
	NDKVersion string `yaml:"ndkVersion"`
	// Version in "name+code" form; Pubspec points at a file whose top-level
	// "version" key has that form. Version wins when both are set.
	Version string `yaml:"version"`
	Pubspec string `yaml:"pubspec"`
}

type yamlSigning struct {
	Identities map[string]yamlIdentity `yaml:"identities"`
	Overrides  map[string]string       `yaml:"overrides"`
}

type yamlIdentity struct {
	KeyAlias      string `yaml:"keyAlias"`
	StoreFile     string `yaml:"storeFile"`
	StorePassword string `yaml:"storePassword"`
	KeyPassword   string `yaml:"keyPassword"`
}

type yamlBuildType struct {
	MinifyEnabled   bool `yaml:"minifyEnabled"`
	ShrinkResources bool `yaml:"shrinkResources"`
	Debuggable      bool `yaml:"debuggable"`
}

type yamlPubspec struct {
	Version string `yaml:"version"`
}

// Config is a loaded project file.
type Config struct {
	Path          string
	Project       *ProjectConfig
	Framework     FrameworkDefaults
	Signing       *SigningStore
	Policy        Policy
	StrictSigning bool
}

// LoadConfig reads and validates a YAML project file. Relative store files
// and pubspec paths are taken relative to the file's directory.
func LoadConfig(path string) (*Config, error) {
	//nolint:gosec // G304: path is the project file named on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg, err := ParseConfig(data, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config %s", path)
	}
	cfg.Path = path
	return cfg, nil
}

// ParseConfig parses project file contents. baseDir resolves relative paths.
func ParseConfig(data []byte, baseDir string) (*Config, error) {
	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	framework, err := raw.Framework.toDefaults(baseDir)
	if err != nil {
		return nil, err
	}

	deps := make([]Coordinate, 0, len(raw.Dependencies))
	for _, d := range raw.Dependencies {
		coord, err := ParseCoordinate(d)
		if err != nil {
			return nil, err
		}
		deps = append(deps, coord)
	}

	project := ProjectConfig{
		Namespace:     raw.Project.Namespace,
		ApplicationID: raw.Project.ApplicationID,
		MinSDK:        raw.Project.MinSDK,
		TargetSDK:     raw.Project.TargetSDK,
		CompileSDK:    raw.Project.CompileSDK,
		NDKVersion:    raw.Project.NDKVersion,
		VersionCode:   raw.Project.VersionCode,
		VersionName:   raw.Project.VersionName,
		JavaVersion:   raw.Project.JavaVersion,
		JVMTarget:     raw.Project.JVMTarget,
		Plugins:       raw.Plugins,
		Dependencies:  deps,
	}.WithDefaults(framework)
	if err := project.Validate(); err != nil {
		return nil, err
	}

	store, err := raw.Signing.toStore(baseDir)
	if err != nil {
		return nil, err
	}

	policy := DefaultPolicy()
	if len(raw.BuildTypes) > 0 {
		overrides := make(Policy, len(raw.BuildTypes))
		for name, bt := range raw.BuildTypes {
			if !buildTypeNamePattern.MatchString(name) {
				return nil, configErrorf(name, "buildTypes", "name must be an identifier")
			}
			overrides[name] = BuildTypePolicy{
				MinifyEnabled:          bt.MinifyEnabled,
				ShrinkResourcesEnabled: bt.ShrinkResources,
				Debuggable:             bt.Debuggable,
			}
		}
		policy = policy.Merge(overrides)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		Project:       project,
		Framework:     framework,
		Signing:       store,
		Policy:        policy,
		StrictSigning: raw.StrictSigning,
	}, nil
}

func (f yamlFramework) toDefaults(baseDir string) (FrameworkDefaults, error) {
	d := FrameworkDefaults{
		CompileSDK: f.CompileSDK,
		TargetSDK:  f.TargetSDK,
		NDKVersion: f.NDKVersion,
	}

	version := f.Version
	if version == "" && f.Pubspec != "" {
		pubspecPath := resolvePath(baseDir, f.Pubspec)
		data, err := os.ReadFile(pubspecPath)
		if err != nil {
			return d, errors.Wrapf(err, "failed to read pubspec %s", pubspecPath)
		}
		var pubspec yamlPubspec
		if err := yaml.Unmarshal(data, &pubspec); err != nil {
			return d, errors.Wrapf(err, "failed to parse pubspec %s", pubspecPath)
		}
		version = pubspec.Version
	}
	if version == "" {
		return d, nil
	}

	name, code, err := ParseFrameworkVersion(version)
	if err != nil {
		return d, err
	}
	d.VersionName = name
	d.VersionCode = code
	return d, nil
}

func (s yamlSigning) toStore(baseDir string) (*SigningStore, error) {
	store, err := NewSigningStore()
	if err != nil {
		return nil, err
	}
	for name, id := range s.Identities {
		err := store.Add(&SigningIdentity{
			Name:          name,
			Alias:         id.KeyAlias,
			StoreFile:     resolvePath(baseDir, id.StoreFile),
			StorePassword: Secret(id.StorePassword),
			KeyPassword:   Secret(id.KeyPassword),
		})
		if err != nil {
			return nil, err
		}
	}
	for buildType, identity := range s.Overrides {
		if err := store.Override(buildType, identity); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Resolver returns a resolver configured with the file's build type policy
// and signing strictness.
func (c *Config) Resolver() *Resolver {
	return &Resolver{
		Policy: c.Policy,
		Strict: c.StrictSigning,
	}
}
