package keymanager

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/events"
	"github.com/google/uuid"
)

// KeySize is the length in bytes of a cluster encryption key (AES-256).
const KeySize = 32

// ClusterKeyEnvVar names the environment variable a daemon reads its
// initial cluster key from.
const ClusterKeyEnvVar = "SIMPLIDFS_CLUSTER_KEY"

// DefaultRotationWindow is how long the previous key stays valid for
// decryption after a rotation, when RotateKey is called without an
// explicit window.
const DefaultRotationWindow = 5 * time.Minute

type keyMaterial struct {
	key       []byte
	version   string
	createdAt time.Time
}

// KeyManager holds the current cluster encryption key plus, during a
// rotation's grace window, the key it replaced.
type KeyManager struct {
	mu sync.Mutex

	current  keyMaterial
	previous *keyMaterial
	window   time.Duration
	clock    func() time.Time
	broker   *events.Broker
}

// SetBroker attaches a broker that key-rotation notifications publish to.
// A nil broker (the default) disables publishing.
func (k *KeyManager) SetBroker(b *events.Broker) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.broker = b
}

// New creates a KeyManager seeded with key, which must be KeySize bytes.
func New(key []byte) (*KeyManager, error) {
	return newWithClock(key, time.Now)
}

func newWithClock(key []byte, clock func() time.Time) (*KeyManager, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("keymanager: key must be %d bytes, got %d", KeySize, len(key))
	}
	return &KeyManager{
		current: keyMaterial{key: append([]byte(nil), key...), version: uuid.New().String(), createdAt: clock()},
		clock:   clock,
	}, nil
}

// NewFromEnv creates a KeyManager seeded from SIMPLIDFS_CLUSTER_KEY, which
// must hold a hex-encoded KeySize-byte key.
func NewFromEnv() (*KeyManager, error) {
	hexKey := os.Getenv(ClusterKeyEnvVar)
	if hexKey == "" {
		return nil, fmt.Errorf("keymanager: %s is not set", ClusterKeyEnvVar)
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("keymanager: %s is not valid hex: %w", ClusterKeyEnvVar, err)
	}
	return New(key)
}

// DeriveKey derives a KeySize-byte key from an arbitrary passphrase, for
// operators who prefer a memorable secret over a random one. Unlike
// GenerateKey, this is deterministic.
func DeriveKey(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

// GenerateKey returns a fresh random KeySize-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("keymanager: generate key: %w", err)
	}
	return key, nil
}

// RotateKey replaces the current key with a freshly generated one. The
// replaced key remains valid for Decrypt for window (DefaultRotationWindow
// if window <= 0), so data encrypted just before the rotation can still be
// read back.
func (k *KeyManager) RotateKey(window time.Duration) error {
	newKey, err := GenerateKey()
	if err != nil {
		return err
	}
	if window <= 0 {
		window = DefaultRotationWindow
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	prev := k.current
	k.previous = &prev
	k.current = keyMaterial{key: newKey, version: uuid.New().String(), createdAt: k.clock()}
	k.window = window

	if k.broker != nil {
		k.broker.Publish(&events.Event{
			Type:     events.EventKeyRotated,
			Message:  "cluster key rotated to " + k.current.version,
			Metadata: map[string]string{"version": k.current.version},
		})
	}
	return nil
}

// CurrentVersion returns an opaque identifier for the currently active
// key, stable across Encrypt/Decrypt calls and changing on every
// RotateKey. Operators use it to correlate a rotate-key response with
// the key generation it produced without exposing key material.
func (k *KeyManager) CurrentVersion() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current.version
}

// Encrypt encrypts plaintext with the current key using AES-256-GCM,
// returning the nonce prepended to the ciphertext.
func (k *KeyManager) Encrypt(plaintext []byte) ([]byte, error) {
	k.mu.Lock()
	key := k.current.key
	k.mu.Unlock()
	return seal(key, plaintext)
}

// Decrypt decrypts ciphertext produced by Encrypt. It tries the current
// key first, then — if still inside the rotation window — the key that
// was just rotated out.
func (k *KeyManager) Decrypt(ciphertext []byte) ([]byte, error) {
	k.mu.Lock()
	current := k.current.key
	var previous []byte
	if k.previous != nil && k.clock().Sub(k.current.createdAt) < k.window {
		previous = k.previous.key
	}
	k.mu.Unlock()

	plaintext, err := open(current, ciphertext)
	if err == nil {
		return plaintext, nil
	}
	if previous != nil {
		if plaintext, prevErr := open(previous, ciphertext); prevErr == nil {
			return plaintext, nil
		}
	}
	return nil, err
}

func seal(key, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("keymanager: cannot encrypt empty data")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keymanager: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keymanager: new GCM: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("keymanager: generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keymanager: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keymanager: new GCM: %w", err)
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("keymanager: ciphertext too short")
	}
	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("keymanager: decrypt: %w", err)
	}
	return plaintext, nil
}
