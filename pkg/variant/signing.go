package variant

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DebugIdentityName is the signing identity every store is expected to hold,
// and the one substituted when a build type has no identity of its own.
const DebugIdentityName = "debug"

// Secret is a reference to a credential. It is resolved only when a keystore
// is opened and never printed.
//
// Supported forms:
//   - "env:NAME" reads environment variable NAME
//   - "file:PATH" reads PATH, trimming a trailing newline
//   - anything else is the literal value
type Secret string

// Resolve returns the secret value.
func (s Secret) Resolve() (string, error) {
	ref := string(s)
	switch {
	case strings.HasPrefix(ref, "env:"):
		name := strings.TrimPrefix(ref, "env:")
		value, ok := os.LookupEnv(name)
		if !ok {
			return "", errors.Errorf("environment variable %s is not set", name)
		}
		return value, nil
	case strings.HasPrefix(ref, "file:"):
		path := strings.TrimPrefix(ref, "file:")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.Wrapf(err, "failed to read secret file %s", path)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	default:
		return ref, nil
	}
}

// Reference describes where the secret comes from without revealing a
// literal value.
func (s Secret) Reference() string {
	ref := string(s)
	if strings.HasPrefix(ref, "env:") || strings.HasPrefix(ref, "file:") {
		return ref
	}
	if ref == "" {
		return ""
	}
	return "literal"
}

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "****"
}

// SigningIdentity is the credential set used to sign a packaged artifact.
type SigningIdentity struct {
	Name          string // key in the signing store, e.g. "debug"
	Alias         string
	StoreFile     string
	StorePassword Secret
	KeyPassword   Secret
}

// Validate checks that the identity names a key alias and a store file.
func (id *SigningIdentity) Validate() error {
	if id.Name == "" {
		return configErrorf("", "signing", "identity name is required")
	}
	if id.Alias == "" {
		return configErrorf("", "signing."+id.Name+".keyAlias", "is required")
	}
	if id.StoreFile == "" {
		return configErrorf("", "signing."+id.Name+".storeFile", "is required")
	}
	return nil
}

// SigningStore owns the signing identities of a project. Build variants hold
// pointers into the store.
type SigningStore struct {
	identities map[string]*SigningIdentity
	overrides  map[string]string
}

// NewSigningStore creates a store holding the given identities.
func NewSigningStore(identities ...*SigningIdentity) (*SigningStore, error) {
	s := &SigningStore{
		identities: make(map[string]*SigningIdentity),
		overrides:  make(map[string]string),
	}
	for _, id := range identities {
		if err := s.Add(id); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add registers an identity. Names must be unique.
func (s *SigningStore) Add(id *SigningIdentity) error {
	if id == nil {
		return configErrorf("", "signing", "nil identity")
	}
	if err := id.Validate(); err != nil {
		return err
	}
	if s.identities == nil {
		s.identities = make(map[string]*SigningIdentity)
	}
	if _, exists := s.identities[id.Name]; exists {
		return configErrorf("", "signing", "identity %q defined twice", id.Name)
	}
	s.identities[id.Name] = id
	return nil
}

// Override makes buildType sign with the identity called identityName.
func (s *SigningStore) Override(buildType, identityName string) error {
	if !buildTypeNamePattern.MatchString(buildType) {
		return configErrorf(buildType, "signing.overrides", "build type name must be a non-empty identifier")
	}
	if _, ok := s.Get(identityName); !ok {
		return configErrorf(buildType, "signingConfig", "unknown signing identity %q", identityName)
	}
	if s.overrides == nil {
		s.overrides = make(map[string]string)
	}
	s.overrides[buildType] = identityName
	return nil
}

// Get returns the identity registered under name.
func (s *SigningStore) Get(name string) (*SigningIdentity, bool) {
	if s == nil {
		return nil, false
	}
	id, ok := s.identities[name]
	return id, ok
}

// OverrideFor returns the identity name explicitly assigned to buildType.
func (s *SigningStore) OverrideFor(buildType string) (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s.overrides[buildType]
	return name, ok
}

// Names returns the registered identity names in sorted order.
func (s *SigningStore) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.identities))
	for name := range s.identities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered identities.
func (s *SigningStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.identities)
}
