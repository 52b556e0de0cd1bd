package audit

import (
	"fmt"

	"github.com/minio/highwayhash"
)

// fingerprintKey is fixed so fingerprints stay comparable across runs.
var fingerprintKey = []byte("fieldaudit/workflow-fingerprint!")

// Fingerprint returns a 64-bit HighwayHash of a document's bytes as hex.
func Fingerprint(data []byte) (string, error) {
	hash, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", err
	}
	if _, err := hash.Write(data); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", hash.Sum64()), nil
}
