// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

// sealer encrypts object bodies to a set of age X25519 recipients and
// decrypts them with the identities loaded from an identity file.
// Either side may be empty: a store with recipients but no identity
// can write encrypted objects it cannot read back.
type sealer struct {
	recipients []age.Recipient
	identities []age.Identity
}

func newSealer(recipientKeys []string, identityFile string) (*sealer, error) {
	s := &sealer{}
	for _, recipientKey := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(recipientKey)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", recipientKey, err)
		}
		s.recipients = append(s.recipients, recipient)
	}
	if identityFile != "" {
		file, err := os.Open(identityFile)
		if err != nil {
			return nil, fmt.Errorf("opening identity file: %w", err)
		}
		defer file.Close()
		s.identities, err = age.ParseIdentities(file)
		if err != nil {
			return nil, fmt.Errorf("parsing identity file %s: %w", identityFile, err)
		}
	}
	return s, nil
}

// enabled reports whether new objects are encrypted.
func (s *sealer) enabled() bool {
	return len(s.recipients) > 0
}

func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, s.recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

func (s *sealer) open(ciphertext []byte) ([]byte, error) {
	if len(s.identities) == 0 {
		return nil, fmt.Errorf("object is encrypted and no identity file is configured")
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), s.identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted body: %w", err)
	}
	return plaintext, nil
}

// GenerateIdentity returns a new age X25519 identity in
// AGE-SECRET-KEY-1 form and its age1 recipient string, for writing an
// identity file and listing the recipient in configuration.
func GenerateIdentity() (identity, recipient string, err error) {
	generated, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("generating age identity: %w", err)
	}
	return generated.String(), generated.Recipient().String(), nil
}
