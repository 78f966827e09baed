package variant

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

func TestOpenKeystoreP12(t *testing.T) {
	dir := t.TempDir()
	cert := newValidTestCertificate(t, "Android Debug")
	path := writeTestP12(t, dir, "debug.p12", cert, testStorePassword)

	id := testDebugIdentity()
	id.StoreFile = path

	ks, err := OpenKeystore(id)
	require.NoError(t, err)
	assert.Same(t, id, ks.Identity)
	assert.Equal(t, "Android Debug", ks.Certificate.Subject.CommonName)
	assert.Len(t, ks.CertChain, 1)
	assert.NoError(t, ks.CheckValidity(time.Now()))
	assert.False(t, ks.IsExpired())
}

func TestOpenKeystorePasswordFromEnv(t *testing.T) {
	dir := t.TempDir()
	cert := newValidTestCertificate(t, "Android Debug")
	path := writeTestP12(t, dir, "debug.p12", cert, "s3cret")
	t.Setenv("BUILDVARIANT_TEST_STORE_PASSWORD", "s3cret")

	id := testDebugIdentity()
	id.StoreFile = path
	id.StorePassword = "env:BUILDVARIANT_TEST_STORE_PASSWORD"
	id.KeyPassword = "env:BUILDVARIANT_TEST_STORE_PASSWORD"

	_, err := OpenKeystore(id)
	require.NoError(t, err)
}

func TestOpenKeystoreKeyPassword(t *testing.T) {
	dir := t.TempDir()
	cert := newValidTestCertificate(t, "Android Debug")
	p12Path := writeTestP12(t, dir, "debug.p12", cert, testStorePassword)
	pemPath := writeTestPEM(t, dir, "debug.pem", cert)

	tests := map[string]struct {
		storeFile   string
		keyPassword Secret
		errContains string
	}{
		"p12 same password":         {p12Path, Secret(testStorePassword), ""},
		"p12 empty key password":    {p12Path, "", ""},
		"p12 different password":    {p12Path, "654321", "does not match the store password"},
		"p12 unresolvable":          {p12Path, "env:BUILDVARIANT_TEST_KEY_PASSWORD_UNSET", "failed to resolve key password"},
		"pem separate key password": {pemPath, "654321", ""},
		"pem unresolvable":          {pemPath, "env:BUILDVARIANT_TEST_KEY_PASSWORD_UNSET", "failed to resolve key password"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			id := testDebugIdentity()
			id.StoreFile = tt.storeFile
			id.KeyPassword = tt.keyPassword

			ks, err := OpenKeystore(id)
			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
				assert.Nil(t, ks)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, ks.Certificate)
		})
	}
}

func TestOpenKeystoreWrongPassword(t *testing.T) {
	dir := t.TempDir()
	cert := newValidTestCertificate(t, "Android Debug")
	path := writeTestP12(t, dir, "debug.p12", cert, testStorePassword)

	id := testDebugIdentity()
	id.StoreFile = path
	id.StorePassword = "wrong"
	id.KeyPassword = "wrong"

	_, err := OpenKeystore(id)
	assert.Error(t, err)
}

func TestOpenKeystoreMissingFile(t *testing.T) {
	id := testDebugIdentity()
	id.StoreFile = filepath.Join(t.TempDir(), "missing.p12")

	_, err := OpenKeystore(id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read keystore")

	_, err = OpenKeystore(nil)
	assert.Error(t, err)
}

func TestOpenKeystorePEM(t *testing.T) {
	dir := t.TempDir()
	cert := newValidTestCertificate(t, "Android Release")
	path := writeTestPEM(t, dir, "release.pem", cert)

	id := &SigningIdentity{Name: "release", Alias: "release", StoreFile: path}
	ks, err := OpenKeystore(id)
	require.NoError(t, err)
	assert.Equal(t, "Android Release", ks.Certificate.Subject.CommonName)
}

func TestDecodeKeystoreRejectsMismatchedKey(t *testing.T) {
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	cert := newValidTestCertificate(t, "Android Debug")

	data, err := gop12.Modern.Encode(other, cert, nil, testStorePassword)
	require.NoError(t, err)

	_, err = DecodeKeystore(data, testStorePassword)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestDecodeKeystorePEMErrors(t *testing.T) {
	cert := newValidTestCertificate(t, "Android Debug")
	keyDER, err := x509.MarshalPKCS8PrivateKey(getTestKey(t))
	require.NoError(t, err)

	keyOnly := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	certOnly := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})

	_, err = DecodeKeystore(keyOnly, "")
	assert.ErrorContains(t, err, "no certificate")

	_, err = DecodeKeystore(certOnly, "")
	assert.ErrorContains(t, err, "no private key")

	_, err = DecodeKeystore([]byte("-----BEGIN FOO-----\nAAAA\n-----END FOO-----\n"), "")
	assert.ErrorContains(t, err, "unsupported PEM type")
}

func TestKeystoreCheckValidity(t *testing.T) {
	now := time.Now()
	expired := newTestCertificate(t, getTestKey(t), "Expired", now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	future := newTestCertificate(t, getTestKey(t), "Future", now.Add(24*time.Hour), now.Add(48*time.Hour))

	ks := &Keystore{Certificate: expired, PrivateKey: getTestKey(t)}
	err := ks.CheckValidity(now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
	assert.True(t, ks.IsExpired())

	ks.Certificate = future
	err = ks.CheckValidity(now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid before")
}
