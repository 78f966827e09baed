package variant

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionConstraintAllows(t *testing.T) {
	tests := []struct {
		constraint string
		allowed    []string
		rejected   []string
	}{
		{"[8,9)", []string{"8", "8.0.0", "8.1.0", "8.99.99"}, []string{"7.9.9", "9", "9.0.0", "10.0.0"}},
		{"20.7.0", []string{"20.7.0"}, []string{"20.6.9", "20.7.1", "21.0.0"}},
		{"[1.2]", []string{"1.2.0"}, []string{"1.2.1", "1.1.0"}},
		{"[1.0,)", []string{"1.0.0", "2.0.0", "100.0.0"}, []string{"0.9.9"}},
		{"(,2.0]", []string{"0.0.1", "1.9.9", "2.0.0"}, []string{"2.0.1"}},
		{"(1.0,2.0)", []string{"1.0.1", "1.9.9"}, []string{"1.0.0", "2.0.0"}},
		{"[ 1.0 , 2.0 ]", []string{"1.0.0", "2.0.0"}, []string{"2.0.1"}},
		{"20.7.0.1", []string{"20.7.0.1"}, []string{"20.7.0", "20.7.0.2", "20.7.1"}},
		{"[20.7.0.1,20.7.1)", []string{"20.7.0.1", "20.7.0.9", "20.7.0.10"}, []string{"20.7.0", "20.7.1", "20.7.1.0"}},
		{"[1.2.3-beta.1,2.0)", []string{"1.2.3-beta.1", "1.2.3", "1.9.9"}, []string{"1.2.3-alpha.1", "2.0.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			c, err := ParseVersionConstraint(tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.constraint, c.String())

			for _, v := range tt.allowed {
				ok, err := c.Allows(v)
				require.NoError(t, err)
				assert.True(t, ok, "%s should allow %s", tt.constraint, v)
			}
			for _, v := range tt.rejected {
				ok, err := c.Allows(v)
				require.NoError(t, err)
				assert.False(t, ok, "%s should reject %s", tt.constraint, v)
			}
		})
	}
}

func TestVersionConstraintIsPinned(t *testing.T) {
	for constraint, want := range map[string]bool{
		"20.7.0":   true,
		"20.7.0.1": true,
		"[1.2]":    true,
		"[8,9)":    false,
		"[1.0,)":   false,
	} {
		c, err := ParseVersionConstraint(constraint)
		require.NoError(t, err)
		assert.Equal(t, want, c.IsPinned(), constraint)
	}
}

func TestParseVersionConstraintErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"[8,9",
		"(1.2)",
		"[,]",
		"[9,8)",
		"[8,8)",
		"[1,2),[3,4)",
		"[1,2,3]",
		"not-a-version",
		"[abc,2)",
		"1.2.3.x",
		"1.2.3.4.5",
	} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseVersionConstraint(s)
			assert.Error(t, err)
		})
	}
}

func TestVersionConstraintAllowsInvalidVersion(t *testing.T) {
	c, err := ParseVersionConstraint("[8,9)")
	require.NoError(t, err)
	_, err = c.Allows("latest")
	assert.Error(t, err)
}

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate("com.facebook.android:facebook-android-sdk:[8,9)")
	require.NoError(t, err)
	assert.Equal(t, "com.facebook.android", c.Group)
	assert.Equal(t, "facebook-android-sdk", c.Artifact)
	assert.Equal(t, "com.facebook.android:facebook-android-sdk", c.Module())
	assert.Equal(t, "com.facebook.android:facebook-android-sdk:[8,9)", c.String())

	c, err = ParseCoordinate("com.google.android.gms:play-services-auth:20.7.0")
	require.NoError(t, err)
	assert.True(t, c.Constraint.IsPinned())

	for _, bad := range []string{"", "group:artifact", ":artifact:1.0", "group::1.0", "group:artifact:"} {
		_, err := ParseCoordinate(bad)
		assert.Error(t, err, bad)
	}
}

func TestCheckResolved(t *testing.T) {
	deps := []Coordinate{
		mustCoordinate(t, "com.facebook.android:facebook-android-sdk:[8,9)"),
		mustCoordinate(t, "com.google.android.gms:play-services-auth:20.7.0"),
	}

	resolved, err := CheckResolved(context.Background(), LockedVersions{
		"com.facebook.android:facebook-android-sdk": "8.2.0",
		"com.google.android.gms:play-services-auth": "20.7.0",
	}, deps)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "8.2.0", resolved[0].Version)
	assert.Equal(t, "20.7.0", resolved[1].Version)

	_, err = CheckResolved(context.Background(), LockedVersions{
		"com.facebook.android:facebook-android-sdk": "9.0.0",
		"com.google.android.gms:play-services-auth": "20.7.0",
	}, deps)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	_, err = CheckResolved(context.Background(), LockedVersions{}, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no locked version")
}

func TestCheckResolvedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deps := []Coordinate{mustCoordinate(t, "com.facebook.android:facebook-android-sdk:[8,9)")}
	_, err := CheckResolved(ctx, LockedVersions{"com.facebook.android:facebook-android-sdk": "8.0.0"}, deps)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadLockedVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "versions.lock.yaml")
	content := "com.facebook.android:facebook-android-sdk: 8.2.0\ncom.google.android.gms:play-services-auth: 20.7.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	locked, err := LoadLockedVersions(path)
	require.NoError(t, err)
	assert.Equal(t, "8.2.0", locked["com.facebook.android:facebook-android-sdk"])

	_, err = LoadLockedVersions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func mustCoordinate(t *testing.T, s string) Coordinate {
	t.Helper()
	c, err := ParseCoordinate(s)
	require.NoError(t, err)
	return c
}
