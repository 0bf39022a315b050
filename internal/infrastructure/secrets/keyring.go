package secrets

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "remote-trigger"

// Ring stores remote server secrets in the OS keyring, falling back to an
// encrypted file under dir.
type Ring struct {
	cfg keyring.Config
}

func New(dir string) *Ring {
	return &Ring{cfg: keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt("remote-trigger-file-key"),
		KeychainTrustApplication: true,
	}}
}

// NewFile only uses the encrypted file backend.
func NewFile(dir, passphrase string) *Ring {
	return &Ring{cfg: keyring.Config{
		ServiceName:      serviceName,
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          dir,
		FilePasswordFunc: keyring.FixedStringPrompt(passphrase),
	}}
}

func (r *Ring) open() (keyring.Keyring, error) {
	ring, err := keyring.Open(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func (r *Ring) Get(key string) (string, error) {
	ring, err := r.open()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (r *Ring) Set(key, value string) error {
	ring, err := r.open()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: key, Label: serviceName + " " + key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting secret %q: %w", key, err)
	}
	return nil
}

func (r *Ring) Delete(key string) error {
	ring, err := r.open()
	if err != nil {
		return err
	}
	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting secret %q: %w", key, err)
	}
	return nil
}
