package variant

import (
	"crypto/x509"

	"github.com/pkg/errors"
	"go.mozilla.org/pkcs7"
)

// SignedManifest is a parsed CMS container holding a plist record.
type SignedManifest struct {
	Record *Record
	Signer *x509.Certificate
}

// SignManifest wraps the plist encoding of record in a CMS (PKCS#7)
// SignedData container signed with the keystore's key.
func SignManifest(record *Record, ks *Keystore) ([]byte, error) {
	if ks == nil || ks.Certificate == nil || ks.PrivateKey == nil {
		return nil, errors.New("keystore has no certificate or private key")
	}

	content, err := record.Marshal(FormatPlist)
	if err != nil {
		return nil, err
	}

	signedData, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signed data")
	}
	signedData.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	var parents []*x509.Certificate
	if len(ks.CertChain) > 1 {
		parents = ks.CertChain[1:]
	}
	if err := signedData.AddSignerChain(ks.Certificate, ks.PrivateKey, parents, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, errors.Wrap(err, "failed to add signer")
	}

	der, err := signedData.Finish()
	if err != nil {
		return nil, errors.Wrap(err, "failed to finish signing")
	}
	return der, nil
}

// ParseSignedManifest parses a CMS container produced by SignManifest and
// verifies its signature.
func ParseSignedManifest(data []byte) (*SignedManifest, error) {
	p7, err := pkcs7.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse PKCS#7 container")
	}
	if err := p7.Verify(); err != nil {
		return nil, errors.Wrap(err, "manifest signature verification failed")
	}

	record, err := ParseRecordPlist(p7.Content)
	if err != nil {
		return nil, err
	}

	return &SignedManifest{
		Record: record,
		Signer: p7.GetOnlySigner(),
	}, nil
}
