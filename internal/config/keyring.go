// internal/config/keyring.go
package config

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "psqlsh"

const (
	masterKeyItem = "__master_key__"
	openAIKeyItem = "__openai_api_key__"
)

// SecretStore keeps small secrets outside the config file
type SecretStore interface {
	GetPassword(key string) (string, error)
	SetPassword(key, value string) error
}

// KeyringStore manages secret storage in the system keyring
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore opens the system keyring
func NewKeyringStore() (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

// NewMemoryStore returns a store backed by an in-process keyring
func NewMemoryStore() *KeyringStore {
	return &KeyringStore{ring: keyring.NewArrayKeyring(nil)}
}

// SetPassword stores a secret under key
func (k *KeyringStore) SetPassword(key, value string) error {
	return k.ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
}

// GetPassword retrieves the secret stored under key
func (k *KeyringStore) GetPassword(key string) (string, error) {
	item, err := k.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	return string(item.Data), nil
}

// DeletePassword removes a secret
func (k *KeyringStore) DeletePassword(key string) error {
	return k.ring.Remove(key)
}

// SetOpenAIKey stores the text-to-SQL API key
func SetOpenAIKey(store SecretStore, apiKey string) error {
	return store.SetPassword(openAIKeyItem, apiKey)
}
