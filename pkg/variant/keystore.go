package variant

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"time"

	"github.com/pkg/errors"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

// Keystore is an opened signing store: the certificate and private key a
// SigningIdentity refers to.
type Keystore struct {
	Identity    *SigningIdentity
	Certificate *x509.Certificate
	PrivateKey  crypto.PrivateKey
	CertChain   []*x509.Certificate
}

// OpenKeystore reads the store file of id and decodes it with the store
// password. Both PKCS#12 stores and PEM bundles holding a certificate and a
// private key are accepted. The key password must resolve, and for PKCS#12
// stores it must be empty or equal to the store password.
func OpenKeystore(id *SigningIdentity) (*Keystore, error) {
	if id == nil {
		return nil, errors.New("no signing identity")
	}
	data, err := os.ReadFile(id.StoreFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read keystore for identity %q", id.Name)
	}
	password, err := id.StorePassword.Resolve()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve store password for identity %q", id.Name)
	}
	keyPassword, err := id.KeyPassword.Resolve()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve key password for identity %q", id.Name)
	}
	// PKCS#12 stores written by keytool protect the key with the store password.
	if !isPEM(data) && keyPassword != "" && keyPassword != password {
		return nil, errors.Errorf("key password for identity %q does not match the store password of PKCS#12 store %s", id.Name, id.StoreFile)
	}
	ks, err := DecodeKeystore(data, password)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open keystore %s", id.StoreFile)
	}
	ks.Identity = id
	return ks, nil
}

// DecodeKeystore decodes PKCS#12 or PEM keystore data.
func DecodeKeystore(data []byte, password string) (*Keystore, error) {
	if isPEM(data) {
		return decodePEMKeystore(data)
	}

	privateKey, cert, caCerts, err := gop12.DecodeChain(data, password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode PKCS#12 store")
	}

	chain := []*x509.Certificate{cert}
	chain = append(chain, caCerts...)

	ks := &Keystore{
		Certificate: cert,
		PrivateKey:  privateKey,
		CertChain:   chain,
	}
	if !keyMatchesCert(ks.PrivateKey, ks.Certificate) {
		return nil, errors.New("private key does not match certificate")
	}
	return ks, nil
}

func isPEM(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN"))
}

func decodePEMKeystore(data []byte) (*Keystore, error) {
	ks := &Keystore{}
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		var err error
		switch block.Type {
		case "CERTIFICATE":
			var cert *x509.Certificate
			cert, err = x509.ParseCertificate(block.Bytes)
			if err == nil {
				ks.CertChain = append(ks.CertChain, cert)
			}
		case "RSA PRIVATE KEY":
			ks.PrivateKey, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		case "PRIVATE KEY":
			ks.PrivateKey, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		case "EC PRIVATE KEY":
			ks.PrivateKey, err = x509.ParseECPrivateKey(block.Bytes)
		default:
			return nil, errors.Errorf("unsupported PEM type: %s", block.Type)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", block.Type)
		}
	}

	if ks.PrivateKey == nil {
		return nil, errors.New("PEM keystore has no private key")
	}
	if len(ks.CertChain) == 0 {
		return nil, errors.New("PEM keystore has no certificate")
	}
	ks.Certificate = ks.CertChain[0]
	if !keyMatchesCert(ks.PrivateKey, ks.Certificate) {
		return nil, errors.New("private key does not match certificate")
	}
	return ks, nil
}

// keyMatchesCert checks if a private key matches a certificate's public key
func keyMatchesCert(privateKey crypto.PrivateKey, cert *x509.Certificate) bool {
	switch priv := privateKey.(type) {
	case *rsa.PrivateKey:
		return priv.PublicKey.Equal(cert.PublicKey)
	case *ecdsa.PrivateKey:
		return priv.PublicKey.Equal(cert.PublicKey)
	case ed25519.PrivateKey:
		return priv.Public().(ed25519.PublicKey).Equal(cert.PublicKey)
	}
	return false
}

// CheckValidity returns an error if the certificate is not valid at t.
func (ks *Keystore) CheckValidity(t time.Time) error {
	if t.Before(ks.Certificate.NotBefore) {
		return errors.Errorf("certificate %q is not valid before %s",
			ks.Certificate.Subject.CommonName, ks.Certificate.NotBefore.Format("2006-01-02"))
	}
	if t.After(ks.Certificate.NotAfter) {
		return errors.Errorf("certificate %q expired on %s",
			ks.Certificate.Subject.CommonName, ks.Certificate.NotAfter.Format("2006-01-02"))
	}
	return nil
}

// IsExpired checks if the keystore certificate has expired
func (ks *Keystore) IsExpired() bool {
	return time.Now().After(ks.Certificate.NotAfter)
}
