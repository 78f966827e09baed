package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aluedeke/go-buildvariant/pkg/variant"
	"github.com/docopt/docopt-go"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/send"
)

const version = "1.0.0"

const usage = `go-buildvariant - Android Build Variant Resolver

A command-line tool for resolving the application identity, signing identity and
size-reduction flags of an Android build type from a static project file.

Usage:
  go-buildvariant resolve [--config=<path>] [--build-type=<name>] [--format=<fmt>] [--output=<path>] [--strict] [--recommended] [--sign]
  go-buildvariant verify [--config=<path>] [--build-type=<name>]
  go-buildvariant info --manifest=<path>
  go-buildvariant info [--config=<path>]
  go-buildvariant deps [--config=<path>] [--lock=<path>]
  go-buildvariant -h | --help
  go-buildvariant --version

Commands:
  resolve   Resolve a build type and print the resolved record
  verify    Open the signing stores and check their certificates
  info      Display a project file summary or a signed manifest
  deps      List dependency constraints and check them against locked versions

Options:
  --config=<path>       Path to the project file (or BUILDVARIANT_CONFIG env var)
  --build-type=<name>   Build type to resolve, e.g. debug or release (or BUILDVARIANT_BUILD_TYPE env var)
  --format=<fmt>        Output format: yaml, json or plist (default yaml, or plist with --sign)
  --output=<path>       Write the record to a file instead of stdout
  --strict              Refuse the debug signing identity for non-debug build types
  --recommended         Enable minify and resource shrinking for release builds
  --sign                Wrap the plist record in a CMS signed manifest (requires --output, always plist)
  --manifest=<path>     Path to a signed manifest (info command)
  --lock=<path>         YAML file mapping group:artifact to locked versions (deps command)
  -h --help             Show this help message
  --version             Show version

Environment Variables:
  BUILDVARIANT_CONFIG      Path to the project file (overridden by --config)
  BUILDVARIANT_BUILD_TYPE  Build type (overridden by --build-type)

Examples:
  # Resolve the release variant as YAML
  go-buildvariant resolve --config=android/app/buildvariant.yaml --build-type=release

  # Resolve using environment variables (useful for CI/CD)
  export BUILDVARIANT_CONFIG=android/app/buildvariant.yaml
  export BUILDVARIANT_BUILD_TYPE=release
  go-buildvariant resolve --format=json

  # Fail instead of signing a release build with the debug key
  go-buildvariant resolve --build-type=release --strict

  # Write a signed manifest of the release variant
  go-buildvariant resolve --build-type=release --sign --output=release.manifest

  # Check all signing stores
  go-buildvariant verify --config=android/app/buildvariant.yaml

  # View a signed manifest
  go-buildvariant info --manifest=release.manifest

  # Check dependency constraints against locked versions
  go-buildvariant deps --lock=versions.lock.yaml
`

func main() {
	if err := loggingSetup(); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}

	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}

	var run func(docopt.Opts) error
	if resolve, _ := opts.Bool("resolve"); resolve {
		run = runResolve
	} else if verify, _ := opts.Bool("verify"); verify {
		run = runVerify
	} else if info, _ := opts.Bool("info"); info {
		run = runInfo
	} else if deps, _ := opts.Bool("deps"); deps {
		run = runDeps
	}
	if run == nil {
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loggingSetup sends log messages to stderr so records on stdout stay clean.
func loggingSetup() error {
	if err := grip.SetSender(send.MakeErrorLogger()); err != nil {
		return err
	}
	grip.SetName("go-buildvariant")
	return nil
}

// loadConfig reads the project file named by --config or BUILDVARIANT_CONFIG.
func loadConfig(opts docopt.Opts) (*variant.Config, error) {
	path, _ := opts.String("--config")
	if path == "" {
		path = os.Getenv("BUILDVARIANT_CONFIG")
	}
	if path == "" {
		return nil, fmt.Errorf("--config is required (or set BUILDVARIANT_CONFIG environment variable)")
	}
	return variant.LoadConfig(path)
}

func buildTypeOption(opts docopt.Opts) string {
	buildType, _ := opts.String("--build-type")
	if buildType == "" {
		buildType = os.Getenv("BUILDVARIANT_BUILD_TYPE")
	}
	return buildType
}

func runResolve(opts docopt.Opts) error {
	formatName, _ := opts.String("--format")
	outputPath, _ := opts.String("--output")
	strict, _ := opts.Bool("--strict")
	recommended, _ := opts.Bool("--recommended")
	sign, _ := opts.Bool("--sign")

	buildType := buildTypeOption(opts)
	if buildType == "" {
		return fmt.Errorf("--build-type is required (or set BUILDVARIANT_BUILD_TYPE environment variable)")
	}
	if sign && outputPath == "" {
		return fmt.Errorf("--sign requires --output")
	}

	format, err := outputFormat(formatName, sign)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	resolver := cfg.Resolver()
	if strict {
		resolver.Strict = true
	}
	if recommended {
		resolver.Policy = resolver.Policy.Merge(variant.RecommendedPolicy())
	}

	v, err := resolver.Resolve(buildType, cfg.Project, cfg.Signing)
	if err != nil {
		return err
	}
	record := v.Record()

	var data []byte
	if sign {
		ks, err := variant.OpenKeystore(v.SigningIdentity)
		if err != nil {
			return fmt.Errorf("failed to open signing store: %w", err)
		}
		if err := ks.CheckValidity(time.Now()); err != nil {
			return err
		}
		data, err = variant.SignManifest(record, ks)
		if err != nil {
			return fmt.Errorf("failed to sign manifest: %w", err)
		}
	} else {
		data, err = record.Marshal(format)
		if err != nil {
			return err
		}
	}

	if outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("Resolved %s variant of %s: %s\n", v.Name, v.ApplicationID, outputPath)
	return nil
}

// outputFormat picks the record encoding. Signed manifests always carry a
// plist record.
func outputFormat(name string, sign bool) (variant.Format, error) {
	if name == "" {
		if sign {
			return variant.FormatPlist, nil
		}
		return variant.FormatYAML, nil
	}
	format, err := variant.ParseFormat(name)
	if err != nil {
		return "", err
	}
	if sign && format != variant.FormatPlist {
		return "", fmt.Errorf("--sign always writes a plist record, cannot use --format=%s", name)
	}
	return format, nil
}

func runVerify(opts docopt.Opts) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	var identities []*variant.SigningIdentity
	if buildType := buildTypeOption(opts); buildType != "" {
		v, err := cfg.Resolver().Resolve(buildType, cfg.Project, cfg.Signing)
		if err != nil {
			return err
		}
		identities = append(identities, v.SigningIdentity)
	} else {
		for _, name := range cfg.Signing.Names() {
			id, _ := cfg.Signing.Get(name)
			identities = append(identities, id)
		}
	}

	fmt.Println("Signing Stores")
	fmt.Println("==============")

	var failed int
	now := time.Now()
	for _, id := range identities {
		fmt.Printf("%s (%s)\n", id.Name, id.StoreFile)
		ks, err := variant.OpenKeystore(id)
		if err == nil {
			err = ks.CheckValidity(now)
		}
		if err != nil {
			failed++
			fmt.Printf("  Status:   FAILED: %v\n", err)
			continue
		}
		fmt.Printf("  Status:   OK\n")
		fmt.Printf("  Subject:  %s\n", ks.Certificate.Subject.CommonName)
		fmt.Printf("  Serial:   %s\n", ks.Certificate.SerialNumber.String())
		fmt.Printf("  Expires:  %s\n", ks.Certificate.NotAfter.Format("2006-01-02"))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d signing stores failed verification", failed, len(identities))
	}
	return nil
}

func runInfo(opts docopt.Opts) error {
	if manifestPath, _ := opts.String("--manifest"); manifestPath != "" {
		return showManifestInfo(manifestPath)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	return showConfigInfo(cfg)
}

func showConfigInfo(cfg *variant.Config) error {
	p := cfg.Project

	fmt.Println("Project Information")
	fmt.Println("===================")
	fmt.Printf("File:           %s\n", cfg.Path)
	fmt.Printf("Application ID: %s\n", p.ApplicationID)
	fmt.Printf("Namespace:      %s\n", p.Namespace)
	fmt.Printf("SDK:            min %d, target %d, compile %d\n", p.MinSDK, p.TargetSDK, p.CompileSDK)
	if p.NDKVersion != "" {
		fmt.Printf("NDK:            %s\n", p.NDKVersion)
	}
	fmt.Printf("Version:        %s (%d)\n", p.VersionName, p.VersionCode)
	if p.JavaVersion != "" {
		fmt.Printf("Java:           %s (jvmTarget %s)\n", p.JavaVersion, p.JVMTarget)
	}
	if len(p.Plugins) > 0 {
		fmt.Printf("Plugins:        %s\n", strings.Join(p.Plugins, ", "))
	}
	fmt.Printf("Strict signing: %v\n", cfg.StrictSigning)

	fmt.Println()
	fmt.Println("Signing Identities")
	fmt.Println("------------------")
	for _, name := range cfg.Signing.Names() {
		id, _ := cfg.Signing.Get(name)
		fmt.Printf("  %s: alias %s, store %s\n", id.Name, id.Alias, id.StoreFile)
	}

	fmt.Println()
	fmt.Println("Build Types")
	fmt.Println("-----------")
	for _, name := range []string{"debug", "release"} {
		pol := cfg.Policy.Lookup(name)
		signer := name
		if override, ok := cfg.Signing.OverrideFor(name); ok {
			signer = override
		} else if _, ok := cfg.Signing.Get(name); !ok {
			signer = variant.DebugIdentityName + " (fallback)"
		}
		fmt.Printf("  %s: signing %s, minify %v, shrink %v, debuggable %v\n",
			name, signer, pol.MinifyEnabled, pol.ShrinkResourcesEnabled, pol.Debuggable)
	}
	return nil
}

func showManifestInfo(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := variant.ParseSignedManifest(data)
	if err != nil {
		return err
	}
	r := m.Record

	fmt.Println("Signed Manifest Information")
	fmt.Println("===========================")
	fmt.Printf("File:           %s\n", path)
	fmt.Printf("Build Type:     %s\n", r.BuildType)
	fmt.Printf("Application ID: %s\n", r.ApplicationID)
	fmt.Printf("Version:        %s (%d)\n", r.VersionName, r.VersionCode)
	fmt.Printf("SDK:            min %d, target %d, compile %d\n", r.MinSDK, r.TargetSDK, r.CompileSDK)
	fmt.Printf("Minify:         %v\n", r.MinifyEnabled)
	fmt.Printf("Shrink:         %v\n", r.ShrinkResourcesEnabled)
	fmt.Printf("Identity:       %s (alias %s)\n", r.Signing.Identity, r.Signing.KeyAlias)
	fmt.Printf("Fallback:       %v\n", r.Signing.Fallback)
	if m.Signer != nil {
		fmt.Printf("Signer:         %s\n", m.Signer.Subject.CommonName)
		fmt.Printf("  Serial:  %s\n", m.Signer.SerialNumber.String())
		fmt.Printf("  Expires: %s\n", m.Signer.NotAfter.Format("2006-01-02"))
	}
	return nil
}

func runDeps(opts docopt.Opts) error {
	lockPath, _ := opts.String("--lock")

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	deps := cfg.Project.Dependencies

	fmt.Println("Dependencies")
	fmt.Println("============")

	if lockPath == "" {
		for _, dep := range deps {
			pinned := ""
			if dep.Constraint.IsPinned() {
				pinned = " (pinned)"
			}
			fmt.Printf("  %s %s%s\n", dep.Module(), dep.Constraint, pinned)
		}
		return nil
	}

	locked, err := variant.LoadLockedVersions(lockPath)
	if err != nil {
		return err
	}
	resolved, err := variant.CheckResolved(context.Background(), locked, deps)
	if err != nil {
		return err
	}
	for _, r := range resolved {
		fmt.Printf("  %s %s -> %s\n", r.Coordinate.Module(), r.Coordinate.Constraint, r.Version)
	}
	return nil
}
