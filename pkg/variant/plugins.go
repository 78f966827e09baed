package variant

// Gradle plugin ids that take part in ordering rules.
const (
	PluginAndroidApplication = "com.android.application"
	PluginKotlinAndroid      = "kotlin-android"
	PluginFlutter            = "dev.flutter.flutter-gradle-plugin"
	PluginGoogleServices     = "com.google.gms.google-services"
)

// The framework plugin reads the Android and Kotlin extensions, so both have
// to be applied before it.
var appliedBeforeFramework = []string{PluginAndroidApplication, PluginKotlinAndroid}

// ValidatePluginOrder rejects duplicate plugin ids and a framework plugin
// applied ahead of the Android or Kotlin plugins.
func ValidatePluginOrder(plugins []string) error {
	position := make(map[string]int, len(plugins))
	for i, id := range plugins {
		if id == "" {
			return configErrorf("", "plugins", "empty plugin id at position %d", i)
		}
		if _, dup := position[id]; dup {
			return configErrorf("", "plugins", "plugin %q applied twice", id)
		}
		position[id] = i
	}

	frameworkAt, ok := position[PluginFlutter]
	if !ok {
		return nil
	}
	for _, id := range appliedBeforeFramework {
		if at, present := position[id]; present && at > frameworkAt {
			return configErrorf("", "plugins", "%q must be applied after %q", PluginFlutter, id)
		}
	}
	return nil
}
