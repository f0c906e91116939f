// Package crypto implements the at-rest encryption envelope from spec.md
// §4.B. Two formats share one AES-256-GCM core: a passphrase-derived key
// (PBKDF2-HMAC-SHA256) and a device-keystore-backed key retrieved through
// github.com/zalando/go-keyring, the same AES-GCM shape the teacher's
// dependency pack uses for at-rest encryption elsewhere in the examples
// (other_examples' mega.go and vaultaire cache-backup both build the cipher
// with aes.NewCipher + cipher.NewGCM + gcm.Seal).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

const (
	magicPassphrase = "PBKE"
	magicDeviceKey  = "DKEY"

	formatVersion = 1

	saltSize = 16
	ivSize   = 12
	keySize  = 32 // AES-256

	pbkdf2Iterations = 100000

	minPassphraseLen = 12
)

// weakPassphrases are rejected outright regardless of length, matching
// spec.md §8's enumerated boundary behavior for trivially guessable
// passphrases. Compared case-insensitively.
var weakPassphrases = map[string]bool{
	"password1234": true,
	"123456789012": true,
	"qwertyuiopas": true,
	"abcdefghijkl": true,
}

// Format identifies which envelope shape a blob carries, or that it isn't
// an envelope at all.
type Format int

const (
	FormatNone Format = iota
	FormatPassphrase
	FormatDeviceKey
)

// Detect inspects the first bytes of blob and reports which envelope format
// (if any) it carries, without attempting to decrypt it.
func Detect(blob []byte) Format {
	if len(blob) < 4 {
		return FormatNone
	}
	switch string(blob[:4]) {
	case magicPassphrase:
		return FormatPassphrase
	case magicDeviceKey:
		return FormatDeviceKey
	default:
		return FormatNone
	}
}

// ValidatePassphrase enforces spec.md §4.B's minimum-strength rule: at
// least 12 code units, and not one of a small list of trivially guessable
// passphrases (checked case-insensitively).
func ValidatePassphrase(passphrase string) error {
	if len([]rune(passphrase)) < minPassphraseLen {
		return types.NewSyncError(types.ErrorClassCrypto, types.CodeWeakPassphrase,
			fmt.Sprintf("passphrase must be at least %d characters", minPassphraseLen), nil)
	}
	if weakPassphrases[strings.ToLower(passphrase)] {
		return types.NewSyncError(types.ErrorClassCrypto, types.CodeWeakPassphrase,
			"passphrase is on the list of commonly used passphrases", nil)
	}
	return nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
}

func sealGCM(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, iv, plaintext, nil), nil
}

func openGCM(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, iv, ciphertext, nil)
}

// EncryptWithPassphrase seals plaintext into a "PBKE"-tagged envelope: 4
// bytes magic, 1 byte version, 16-byte random salt, 12-byte random IV, then
// the GCM-sealed ciphertext (with its 16-byte authentication tag appended).
func EncryptWithPassphrase(plaintext []byte, passphrase string) ([]byte, error) {
	if err := ValidatePassphrase(passphrase); err != nil {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeIOError, "generate salt", err)
	}
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeIOError, "generate iv", err)
	}

	key := deriveKey(passphrase, salt)
	sealed, err := sealGCM(key, iv, plaintext)
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeCorruptedEnvelope, "seal envelope", err)
	}

	out := make([]byte, 0, 4+1+saltSize+ivSize+len(sealed))
	out = append(out, []byte(magicPassphrase)...)
	out = append(out, formatVersion)
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, sealed...)
	return out, nil
}

// DecryptWithPassphrase opens a "PBKE" envelope produced by
// EncryptWithPassphrase. It returns a *types.SyncError with
// CodeCorruptedEnvelope, CodeUnsupportedVersion, or CodeWrongPassphrase on
// failure, per spec.md §8's enumerated decrypt errors.
func DecryptWithPassphrase(blob []byte, passphrase string) ([]byte, error) {
	header := 4 + 1 + saltSize + ivSize
	if len(blob) < header {
		return nil, types.NewSyncError(types.ErrorClassIntegrity, types.CodeCorruptedEnvelope, "envelope too short", nil)
	}
	if subtle.ConstantTimeCompare(blob[:4], []byte(magicPassphrase)) != 1 {
		return nil, types.NewSyncError(types.ErrorClassIntegrity, types.CodeCorruptedEnvelope, "bad magic", nil)
	}
	if blob[4] != formatVersion {
		return nil, types.NewSyncError(types.ErrorClassIntegrity, types.CodeUnsupportedVersion,
			fmt.Sprintf("unsupported envelope version %d", blob[4]), nil)
	}

	salt := blob[5 : 5+saltSize]
	iv := blob[5+saltSize : header]
	ciphertext := blob[header:]

	key := deriveKey(passphrase, salt)
	plain, err := openGCM(key, iv, ciphertext)
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeWrongPassphrase, "authentication failed", err)
	}
	return plain, nil
}

// DeviceKeyStore retrieves and stores the raw symmetric key used for
// device-keystore-mode encryption. The default implementation
// (KeyringDeviceKeyStore) backs onto the OS keychain / secure element via
// github.com/zalando/go-keyring; tests may substitute an in-memory fake.
type DeviceKeyStore interface {
	// Key returns the raw 32-byte device key for service/account,
	// generating and persisting one on first use.
	Key(service, account string) ([]byte, error)
}

// EncryptWithDeviceKey seals plaintext into a "DKEY"-tagged envelope: 4
// bytes magic, 1 byte version, 12-byte random IV, then the GCM-sealed
// ciphertext. The key itself never touches the envelope; it is resolved
// through store at both encrypt and decrypt time.
func EncryptWithDeviceKey(plaintext []byte, store DeviceKeyStore, service, account string) ([]byte, error) {
	key, err := store.Key(service, account)
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeDeviceKeyUnavailable, "resolve device key", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeIOError, "generate iv", err)
	}

	sealed, err := sealGCM(key, iv, plaintext)
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeCorruptedEnvelope, "seal envelope", err)
	}

	out := make([]byte, 0, 4+1+ivSize+len(sealed))
	out = append(out, []byte(magicDeviceKey)...)
	out = append(out, formatVersion)
	out = append(out, iv...)
	out = append(out, sealed...)
	return out, nil
}

// DecryptWithDeviceKey opens a "DKEY" envelope produced by
// EncryptWithDeviceKey.
func DecryptWithDeviceKey(blob []byte, store DeviceKeyStore, service, account string) ([]byte, error) {
	header := 4 + 1 + ivSize
	if len(blob) < header {
		return nil, types.NewSyncError(types.ErrorClassIntegrity, types.CodeCorruptedEnvelope, "envelope too short", nil)
	}
	if subtle.ConstantTimeCompare(blob[:4], []byte(magicDeviceKey)) != 1 {
		return nil, types.NewSyncError(types.ErrorClassIntegrity, types.CodeCorruptedEnvelope, "bad magic", nil)
	}
	if blob[4] != formatVersion {
		return nil, types.NewSyncError(types.ErrorClassIntegrity, types.CodeUnsupportedVersion,
			fmt.Sprintf("unsupported envelope version %d", blob[4]), nil)
	}

	iv := blob[5:header]
	ciphertext := blob[header:]

	key, err := store.Key(service, account)
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeDeviceKeyUnavailable, "resolve device key", err)
	}

	plain, err := openGCM(key, iv, ciphertext)
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeCorruptedEnvelope, "authentication failed", err)
	}
	return plain, nil
}

// Encrypt dispatches to the passphrase or device-key path according to
// cfg.Mode, or returns plaintext unchanged when encryption is disabled.
func Encrypt(plaintext []byte, cfg types.EncryptionConfig, store DeviceKeyStore, service, account string) ([]byte, error) {
	switch cfg.Mode {
	case types.EncryptionNone:
		return plaintext, nil
	case types.EncryptionPassphrase:
		return EncryptWithPassphrase(plaintext, cfg.Passphrase)
	case types.EncryptionDeviceKeystore:
		return EncryptWithDeviceKey(plaintext, store, service, account)
	default:
		return nil, types.NewSyncError(types.ErrorClassCrypto, types.CodeCorruptedEnvelope, "unknown encryption mode", nil)
	}
}

// Decrypt inspects blob's magic and dispatches to the matching decrypt
// path. If blob carries no recognized envelope magic, it is returned
// unchanged (treated as already-plaintext).
func Decrypt(blob []byte, cfg types.EncryptionConfig, store DeviceKeyStore, service, account string) ([]byte, error) {
	switch Detect(blob) {
	case FormatPassphrase:
		return DecryptWithPassphrase(blob, cfg.Passphrase)
	case FormatDeviceKey:
		return DecryptWithDeviceKey(blob, store, service, account)
	default:
		return blob, nil
	}
}
