package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"voting-service/internal/config"
	"voting-service/internal/util"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"go.uber.org/zap"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// TokenCipher seals and opens opaque session tokens with AES-256-GCM.
// The key is resolved once at startup: KMS-unwrapped in production,
// config-supplied or random in development.
type TokenCipher struct {
	gcm cipher.AEAD
}

func NewTokenCipher(ctx context.Context, cfg *config.Config, kmsClient *kms.Client) (*TokenCipher, error) {
	key, err := resolveKey(ctx, cfg, kmsClient)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return &TokenCipher{gcm: gcm}, nil
}

func resolveKey(ctx context.Context, cfg *config.Config, kmsClient *kms.Client) ([]byte, error) {
	if cfg.KMS.Enabled && cfg.KMS.WrappedTokenKey != "" {
		wrapped, err := base64.StdEncoding.DecodeString(cfg.KMS.WrappedTokenKey)
		if err != nil {
			return nil, fmt.Errorf("invalid wrapped token key: %w", err)
		}

		result, err := kmsClient.Decrypt(ctx, &kms.DecryptInput{
			CiphertextBlob: wrapped,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap token key: %w", err)
		}
		if len(result.Plaintext) != 32 {
			return nil, fmt.Errorf("unwrapped token key must be 32 bytes, got %d", len(result.Plaintext))
		}

		util.Info("Token key unwrapped via KMS", zap.String("key_id", cfg.KMS.KeyID))
		return result.Plaintext, nil
	}

	if cfg.Session.TokenKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.Session.TokenKey)
		if err != nil {
			return nil, fmt.Errorf("invalid session token key: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("session token key must be 32 bytes, got %d", len(key))
		}
		return key, nil
	}

	if cfg.IsProduction() {
		return nil, errors.New("production requires a KMS-wrapped or configured token key")
	}

	// Dev fallback. Tokens do not survive a restart.
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate dev token key: %w", err)
	}
	util.Warn("Using ephemeral token key; existing sessions will not resolve after restart")
	return key, nil
}

// Seal encrypts plaintext into a URL-safe opaque token.
func (tc *TokenCipher) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, tc.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	sealed := tc.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a token produced by Seal. Any tampering, truncation or
// key mismatch returns ErrDecryptionFailed.
func (tc *TokenCipher) Open(token string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	nonceSize := tc.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := tc.gcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
