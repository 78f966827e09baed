package variant

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/send"
	"github.com/stretchr/testify/require"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

const testStorePassword = "123456"

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

// getTestKey returns an RSA key shared by all tests in the package.
func getTestKey(t *testing.T) *rsa.PrivateKey {
	testKeyOnce.Do(func() {
		testKey, testKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, testKeyErr)
	return testKey
}

// newTestCertificate creates a self-signed certificate for key valid from
// notBefore to notAfter.
func newTestCertificate(t *testing.T, key *rsa.PrivateKey, cn string, notBefore, notAfter time.Time) *x509.Certificate {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn, Organization: []string{"Android"}},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func newValidTestCertificate(t *testing.T, cn string) *x509.Certificate {
	now := time.Now()
	return newTestCertificate(t, getTestKey(t), cn, now.Add(-time.Hour), now.Add(365*24*time.Hour))
}

// writeTestP12 writes a PKCS#12 store holding the shared key and cert.
func writeTestP12(t *testing.T, dir, name string, cert *x509.Certificate, password string) string {
	data, err := gop12.Modern.Encode(getTestKey(t), cert, nil, password)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// writeTestPEM writes a PEM bundle with the certificate followed by the key.
func writeTestPEM(t *testing.T, dir, name string, cert *x509.Certificate) string {
	keyDER, err := x509.MarshalPKCS8PrivateKey(getTestKey(t))
	require.NoError(t, err)
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	data = append(data, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})...)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func testProject() *ProjectConfig {
	return &ProjectConfig{
		Namespace:     "com.example.social_login_app",
		ApplicationID: "com.example.social_login_app",
		MinSDK:        21,
		TargetSDK:     35,
		CompileSDK:    35,
		VersionCode:   1,
		VersionName:   "1.0.0",
		JavaVersion:   "11",
		JVMTarget:     "11",
		Plugins: []string{
			PluginAndroidApplication,
			PluginKotlinAndroid,
			PluginFlutter,
			PluginGoogleServices,
		},
	}
}

func testDebugIdentity() *SigningIdentity {
	return &SigningIdentity{
		Name:          DebugIdentityName,
		Alias:         "androiddebugkey",
		StoreFile:     "mykey.jks",
		StorePassword: Secret(testStorePassword),
		KeyPassword:   Secret(testStorePassword),
	}
}

func testStore(t *testing.T, identities ...*SigningIdentity) *SigningStore {
	store, err := NewSigningStore(identities...)
	require.NoError(t, err)
	return store
}

// newCapturingLogger returns a logger whose messages land in the returned
// sender.
func newCapturingLogger(t *testing.T) (grip.Journaler, *send.InternalSender) {
	sender, err := send.NewInternalLogger("buildvariant-test", send.LevelInfo{Threshold: level.Info, Default: level.Info})
	require.NoError(t, err)
	return logging.MakeGrip(sender), sender
}

func newCapturingResolver(t *testing.T) (*Resolver, *send.InternalSender) {
	logger, sender := newCapturingLogger(t)
	r := NewResolver()
	r.Logger = logger
	return r, sender
}
