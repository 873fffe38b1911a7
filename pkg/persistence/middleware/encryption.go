package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// EnvelopeKey is the only key of an encrypted checkpoint.
const EnvelopeKey = "__encrypted__"

var (
	// ErrInvalidKey is returned for keys that are not 32 bytes long.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")

	// ErrNotEncrypted is returned when a checkpoint has no envelope.
	ErrNotEncrypted = errors.New("blackboard is missing encrypted envelope")
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new checkpoints. Must be 32 bytes.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt,
	// so keys can be rotated without losing existing checkpoints.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.BlackboardStore
	config EncryptionConfig
}

// NewEncryptionMiddleware seals every checkpoint with AES-GCM. The underlying store
// only ever sees a one-key blackboard holding the base64 ciphertext.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	for _, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback: %w", ErrInvalidKey)
		}
	}
	return func(next ports.BlackboardStore) ports.BlackboardStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

// ParseKey decodes a standard base64 AES-256 key.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return key, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, id string, bb domain.Blackboard) error {
	plain, err := json.Marshal(bb)
	if err != nil {
		return fmt.Errorf("marshal blackboard: %w", err)
	}
	sealed, err := encrypt(plain, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("encrypt blackboard: %w", err)
	}
	envelope := domain.NewBlackboard(map[string]any{
		EnvelopeKey: base64.StdEncoding.EncodeToString(sealed),
	})
	return m.next.Save(ctx, id, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (domain.Blackboard, error) {
	envelope, err := m.next.Load(ctx, id)
	if err != nil {
		return domain.Blackboard{}, err
	}
	// Fail closed: a plain checkpoint is never accepted once encryption is on.
	encoded, ok := envelope.GetOr(EnvelopeKey, nil).(string)
	if !ok {
		return domain.Blackboard{}, fmt.Errorf("%s: %w", id, ErrNotEncrypted)
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Blackboard{}, fmt.Errorf("decode ciphertext: %w", err)
	}
	plain, err := decryptWithRotation(sealed, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return domain.Blackboard{}, fmt.Errorf("decrypt blackboard: %w", err)
	}
	var bb domain.Blackboard
	if err := json.Unmarshal(plain, &bb); err != nil {
		return domain.Blackboard{}, fmt.Errorf("unmarshal decrypted blackboard: %w", err)
	}
	return bb, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
