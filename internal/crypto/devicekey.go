package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/zalando/go-keyring"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// KeyringDeviceKeyStore resolves device keys through the OS keychain /
// secure element, matching the manifests from other_examples' keyring-using
// repos (cre4ture-syncthing, bilalbayram-metacli) that lean on
// github.com/zalando/go-keyring instead of hand-rolling platform-specific
// secure storage.
type KeyringDeviceKeyStore struct{}

// Key returns the raw device key stored under service/account, generating
// and persisting a fresh random one on first use.
func (KeyringDeviceKeyStore) Key(service, account string) ([]byte, error) {
	encoded, err := keyring.Get(service, account)
	if err == nil {
		key, decodeErr := base64.StdEncoding.DecodeString(encoded)
		if decodeErr != nil {
			return nil, fmt.Errorf("devicekey: stored key is corrupted: %w", decodeErr)
		}
		if len(key) != keySize {
			return nil, fmt.Errorf("devicekey: stored key has wrong length %d", len(key))
		}
		return key, nil
	}
	if err != keyring.ErrNotFound {
		return nil, fmt.Errorf("devicekey: read keyring: %w", err)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("devicekey: generate key: %w", err)
	}
	if err := keyring.Set(service, account, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("devicekey: persist key: %w", err)
	}
	return key, nil
}

// memoryDeviceKeyStore is an in-process DeviceKeyStore for tests, avoiding
// a dependency on a real OS keychain being available in CI.
type memoryDeviceKeyStore struct {
	keys map[string][]byte
}

// NewMemoryDeviceKeyStore returns a DeviceKeyStore backed by an in-memory
// map instead of the OS keychain.
func NewMemoryDeviceKeyStore() DeviceKeyStore {
	return &memoryDeviceKeyStore{keys: make(map[string][]byte)}
}

func (m *memoryDeviceKeyStore) Key(service, account string) ([]byte, error) {
	id := service + "\x00" + account
	if key, ok := m.keys[id]; ok {
		return key, nil
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeIOError, "generate device key", err)
	}
	m.keys[id] = key
	return key, nil
}
