package ckpt

import "io"

// Cipher transforms content payloads at rest. Content identity is
// always the plaintext checksum; only the stored bytes are transformed.
type Cipher interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
