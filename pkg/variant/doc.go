// Package variant resolves Android build variants from a static project configuration.
//
// A build variant combines the immutable application identity (application id,
// SDK bounds, version code and name) with the signing identity and the
// size-reduction flags selected for one build type.
//
// # Basic Usage
//
// To resolve the release variant of a project file:
//
//	cfg, err := variant.LoadConfig("buildvariant.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := cfg.Resolver().Resolve("release", cfg.Project, cfg.Signing)
//
// # Signing Fallback
//
// When no signing identity is registered for the requested build type, the
// resolver substitutes the identity named "debug" and logs a warning. A strict
// resolver refuses the substitution with a ConfigurationError instead.
//
// # Features
//
//   - Framework defaults: compile/target SDK and version fields supplied by the framework plugin
//   - Keystore verification: PKCS#12 and PEM signing stores
//   - Dependency constraints: Maven style version ranges checked against a resolver
//   - Export: YAML, JSON and plist records, optionally wrapped in a CMS signed manifest
package variant
