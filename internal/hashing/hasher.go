package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"voting-service/internal/config"
	"voting-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash         = errors.New("invalid hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	ErrUnknownPepper       = errors.New("unknown pepper version")
)

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Pepper struct {
	Value     string
	CreatedAt time.Time
	Version   int
}

// Hasher produces and verifies argon2id password digests. A server-side
// pepper is mixed into every hash; old pepper versions are retained so
// digests minted before a rotation still verify.
type Hasher struct {
	params        Argon2Params
	currentPepper *Pepper
	oldPeppers    []*Pepper
	config        *config.Config
	mu            sync.RWMutex
}

func NewHasher(cfg *config.Config) *Hasher {
	params := Argon2Params{
		Memory:      uint32(cfg.Hashing.Argon2MemoryCost),
		Iterations:  uint32(cfg.Hashing.Argon2TimeCost),
		Parallelism: uint8(cfg.Hashing.Argon2Parallelism),
		SaltLength:  32,
		KeyLength:   32,
	}

	h := &Hasher{
		params: params,
		config: cfg,
	}

	h.rotatePepper()

	return h
}

func (h *Hasher) rotatePepper() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.currentPepper != nil {
		h.oldPeppers = append(h.oldPeppers, h.currentPepper)
	}

	pepperBytes := make([]byte, 32)
	if _, err := rand.Read(pepperBytes); err != nil {
		util.Fatal("Failed to generate pepper", zap.Error(err))
	}

	version := 1
	if h.currentPepper != nil {
		version = h.currentPepper.Version + 1
	}

	h.currentPepper = &Pepper{
		Value:     base64.RawURLEncoding.EncodeToString(pepperBytes),
		CreatedAt: time.Now(),
		Version:   version,
	}

	util.Info("Pepper rotated",
		zap.Int("version", h.currentPepper.Version),
		zap.Time("created_at", h.currentPepper.CreatedAt),
	)
}

// StartPepperRotation starts background pepper rotation.
func (h *Hasher) StartPepperRotation() {
	ticker := time.NewTicker(time.Duration(h.config.Hashing.PepperRotationDays) * 24 * time.Hour)

	go func() {
		for range ticker.C {
			h.rotatePepper()

			// Keep only the last two retired versions.
			h.mu.Lock()
			if len(h.oldPeppers) > 2 {
				h.oldPeppers = h.oldPeppers[len(h.oldPeppers)-2:]
			}
			h.mu.Unlock()
		}
	}()
}

func (h *Hasher) pepperByVersion(version int) (*Pepper, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.currentPepper != nil && h.currentPepper.Version == version {
		return h.currentPepper, true
	}
	for _, p := range h.oldPeppers {
		if p.Version == version {
			return p, true
		}
	}
	return nil, false
}

// HashPassword returns a self-describing digest string:
// $argon2id$v=19$m=...,t=...,p=...,pv=<pepper version>$<salt>$<hash>
func (h *Hasher) HashPassword(password string) (string, error) {
	h.mu.RLock()
	pepper := h.currentPepper
	h.mu.RUnlock()

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	peppered := password + pepper.Value
	hash := argon2.IDKey([]byte(peppered), salt,
		h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	digest := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d,pv=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Parallelism, pepper.Version,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return digest, nil
}

// VerifyPassword checks password against a digest produced by HashPassword.
func (h *Hasher) VerifyPassword(password, digest string) (bool, error) {
	params, pepperVersion, salt, hash, err := decodeDigest(digest)
	if err != nil {
		return false, err
	}

	pepper, ok := h.pepperByVersion(pepperVersion)
	if !ok {
		return false, ErrUnknownPepper
	}

	peppered := password + pepper.Value
	candidate := argon2.IDKey([]byte(peppered), salt,
		params.Iterations, params.Memory, params.Parallelism, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

func decodeDigest(digest string) (Argon2Params, int, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, 0, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, 0, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return params, 0, nil, nil, ErrIncompatibleVersion
	}

	var pepperVersion int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d,pv=%d",
		&params.Memory, &params.Iterations, &params.Parallelism, &pepperVersion); err != nil {
		return params, 0, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, 0, nil, nil, ErrInvalidHash
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, 0, nil, nil, ErrInvalidHash
	}

	return params, pepperVersion, salt, hash, nil
}
