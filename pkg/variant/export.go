package variant

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"howett.net/plist"
)

// Record is the resolved build configuration handed to the packaging
// toolchain. Passwords appear only as references.
type Record struct {
	BuildType              string        `yaml:"buildType" json:"buildType" plist:"BuildType"`
	ApplicationID          string        `yaml:"applicationId" json:"applicationId" plist:"ApplicationID"`
	Namespace              string        `yaml:"namespace,omitempty" json:"namespace,omitempty" plist:"Namespace,omitempty"`
	MinSDK                 int           `yaml:"minSdk" json:"minSdk" plist:"MinSDK"`
	TargetSDK              int           `yaml:"targetSdk" json:"targetSdk" plist:"TargetSDK"`
	CompileSDK             int           `yaml:"compileSdk" json:"compileSdk" plist:"CompileSDK"`
	VersionCode            int           `yaml:"versionCode" json:"versionCode" plist:"VersionCode"`
	VersionName            string        `yaml:"versionName" json:"versionName" plist:"VersionName"`
	Signing                SigningRecord `yaml:"signing" json:"signing" plist:"Signing"`
	MinifyEnabled          bool          `yaml:"minifyEnabled" json:"minifyEnabled" plist:"MinifyEnabled"`
	ShrinkResourcesEnabled bool          `yaml:"shrinkResources" json:"shrinkResources" plist:"ShrinkResources"`
	Debuggable             bool          `yaml:"debuggable" json:"debuggable" plist:"Debuggable"`
}

// SigningRecord is the exported view of a SigningIdentity.
type SigningRecord struct {
	Identity         string `yaml:"identity" json:"identity" plist:"Identity"`
	KeyAlias         string `yaml:"keyAlias" json:"keyAlias" plist:"KeyAlias"`
	StoreFile        string `yaml:"storeFile" json:"storeFile" plist:"StoreFile"`
	StorePasswordRef string `yaml:"storePasswordRef,omitempty" json:"storePasswordRef,omitempty" plist:"StorePasswordRef,omitempty"`
	KeyPasswordRef   string `yaml:"keyPasswordRef,omitempty" json:"keyPasswordRef,omitempty" plist:"KeyPasswordRef,omitempty"`
	Fallback         bool   `yaml:"fallback" json:"fallback" plist:"Fallback"`
}

// Record flattens the variant for export.
func (v *BuildVariant) Record() *Record {
	r := &Record{
		BuildType:              v.Name,
		ApplicationID:          v.ApplicationID,
		Namespace:              v.Namespace,
		MinSDK:                 v.MinSDK,
		TargetSDK:              v.TargetSDK,
		CompileSDK:             v.CompileSDK,
		VersionCode:            v.VersionCode,
		VersionName:            v.VersionName,
		MinifyEnabled:          v.MinifyEnabled,
		ShrinkResourcesEnabled: v.ShrinkResourcesEnabled,
		Debuggable:             v.Debuggable,
	}
	if id := v.SigningIdentity; id != nil {
		r.Signing = SigningRecord{
			Identity:         id.Name,
			KeyAlias:         id.Alias,
			StoreFile:        id.StoreFile,
			StorePasswordRef: id.StorePassword.Reference(),
			KeyPasswordRef:   id.KeyPassword.Reference(),
			Fallback:         v.SigningFallback,
		}
	}
	return r
}

// Format is an export encoding for records.
type Format string

// Supported export formats.
const (
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
	FormatPlist Format = "plist"
)

// ParseFormat parses a format name, case insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatYAML, FormatJSON, FormatPlist:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errors.Errorf("unsupported format %q (want yaml, json or plist)", s)
	}
}

// Marshal encodes the record in the given format.
func (r *Record) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal record to YAML")
		}
		return data, nil
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal record to JSON")
		}
		return append(data, '\n'), nil
	case FormatPlist:
		data, err := plist.MarshalIndent(r, plist.XMLFormat, "\t")
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal record to plist")
		}
		return data, nil
	default:
		return nil, errors.Errorf("unsupported format %q", format)
	}
}

// ParseRecordPlist parses a plist encoded record.
func ParseRecordPlist(data []byte) (*Record, error) {
	var r Record
	if _, err := plist.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "failed to parse record plist")
	}
	return &r, nil
}
