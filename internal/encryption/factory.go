package encryption

import (
	"fmt"
	"io"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/config"
)

// NoneCipher is the identity cipher used when at-rest encryption is
// disabled.
type NoneCipher struct{}

var _ ckpt.Cipher = NoneCipher{}

func (NoneCipher) Encrypt(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

func (NoneCipher) Decrypt(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

// NewCipherFromConfig creates a Cipher based on the configuration type.
func NewCipherFromConfig(cfg config.EncryptionConfig) (ckpt.Cipher, error) {
	switch cfg.Type {
	case "none", "":
		return NoneCipher{}, nil
	case "age":
		return NewAgeCipher(cfg), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
