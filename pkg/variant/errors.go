package variant

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError reports a project or signing configuration that cannot
// produce a build variant. It is fatal to the build invocation.
type ConfigurationError struct {
	BuildType string // empty when the error is not tied to a build type
	Field     string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.BuildType != "" {
		return fmt.Sprintf("configuration error in build type %q: %s: %s", e.BuildType, e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func configErrorf(buildType, field, format string, args ...interface{}) error {
	return &ConfigurationError{
		BuildType: buildType,
		Field:     field,
		Reason:    fmt.Sprintf(format, args...),
	}
}

// IsConfigurationError reports whether err, or any error it wraps, is a
// ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
