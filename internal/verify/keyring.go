package verify

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// LoadKeyring reads the trusted public keys from the given files. Each file
// may hold one or more keys, armored or binary. Unparsable key material is a
// configuration fault and fails the whole load.
func LoadKeyring(paths []string) (openpgp.EntityList, error) {
	keyring := make(openpgp.EntityList, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open key file %s: %w", path, err)
		}

		entities, err := openpgp.ReadArmoredKeyRing(f)
		if err != nil {
			// Retry as a binary keyring.
			if _, seekErr := f.Seek(0, 0); seekErr != nil {
				_ = f.Close()
				return nil, fmt.Errorf("failed to reset key file %s: %w", path, seekErr)
			}
			entities, err = openpgp.ReadKeyRing(f)
		}
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse key file %s: %w", path, err)
		}
		if len(entities) == 0 {
			return nil, fmt.Errorf("no keys found in file %s", path)
		}

		keyring = append(keyring, entities...)
	}
	return keyring, nil
}
