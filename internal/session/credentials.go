// internal/session/credentials.go
package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/bosgames/portal/internal/portalapi"
)

// ErrBadPassphrase is returned when a credential file cannot be opened
// with the supplied passphrase.
var ErrBadPassphrase = errors.New("wrong passphrase or corrupt credential file")

// Argon2id parameters for the sealing key. Lighter than a server-side
// password hash; this runs on every portal start.
const (
	sealMemory      = 64 * 1024
	sealIterations  = 3
	sealParallelism = 2
	sealSaltLength  = 16
	sealKeyLength   = 32
)

// Credentials is what survives a restart: the token pair and the email
// it belongs to.
type Credentials struct {
	Email  string              `json:"email"`
	Tokens portalapi.TokenPair `json:"tokens"`
}

// credentialFile is the on-disk envelope around the sealed payload.
type credentialFile struct {
	Salt  string `json:"salt"`
	Nonce string `json:"nonce"`
	Box   string `json:"box"`
}

// CredentialStore seals credentials to a file with a key derived from a
// passphrase. Losing the passphrase means logging in again; nothing in
// the file is recoverable without it.
type CredentialStore struct {
	Path string
}

func sealKey(passphrase string, salt []byte) *[32]byte {
	derived := argon2.IDKey([]byte(passphrase), salt, sealIterations, sealMemory, sealParallelism, sealKeyLength)
	var key [32]byte
	copy(key[:], derived)
	return &key
}

// Save seals creds under passphrase, replacing any previous file.
func (cs CredentialStore) Save(passphrase string, creds Credentials) error {
	plain, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	salt := make([]byte, sealSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}

	box := secretbox.Seal(nil, plain, &nonce, sealKey(passphrase, salt))
	envelope, err := json.Marshal(credentialFile{
		Salt:  base64.RawStdEncoding.EncodeToString(salt),
		Nonce: base64.RawStdEncoding.EncodeToString(nonce[:]),
		Box:   base64.RawStdEncoding.EncodeToString(box),
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cs.Path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	return os.WriteFile(cs.Path, envelope, 0o600)
}

// Load opens the sealed file. A missing file surfaces as os.ErrNotExist
// so callers can fall back to interactive login.
func (cs CredentialStore) Load(passphrase string) (Credentials, error) {
	raw, err := os.ReadFile(cs.Path)
	if err != nil {
		return Credentials{}, err
	}

	var envelope credentialFile
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Credentials{}, fmt.Errorf("credential file malformed: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return Credentials{}, ErrBadPassphrase
	}
	nonceBytes, err := base64.RawStdEncoding.DecodeString(envelope.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return Credentials{}, ErrBadPassphrase
	}
	box, err := base64.RawStdEncoding.DecodeString(envelope.Box)
	if err != nil {
		return Credentials{}, ErrBadPassphrase
	}

	var nonce [24]byte
	copy(nonce[:], nonceBytes)
	plain, ok := secretbox.Open(nil, box, &nonce, sealKey(passphrase, salt))
	if !ok {
		return Credentials{}, ErrBadPassphrase
	}

	var creds Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return Credentials{}, fmt.Errorf("sealed payload malformed: %w", err)
	}
	return creds, nil
}

// Delete removes the credential file, e.g. on logout.
func (cs CredentialStore) Delete() error {
	err := os.Remove(cs.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
