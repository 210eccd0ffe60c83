package config

import (
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/valtok-go/internal/infra/confloader"
	"github.com/yndnr/valtok-go/pkg/crypto/adaptive"
	"github.com/yndnr/valtok-go/pkg/dataprotect"
)

// ErrNoDefaultKey means the default key could not be determined.
var ErrNoDefaultKey = errors.New("config: keys.default is required when the ring holds more than one key")

// LoadKeysFile reads a key ring file. Environment variables are not applied.
func LoadKeysFile(path string) (KeysSection, error) {
	var ks KeysSection
	l := confloader.NewLoader(confloader.WithConfigFile(path), confloader.WithEnvPrefix(""))
	if err := l.Load(&ks); err != nil {
		return KeysSection{}, fmt.Errorf("load keys file: %w", err)
	}
	return ks, nil
}

// Merge returns ks with the keys of other appended. other's default and
// algorithm win when set.
func (ks KeysSection) Merge(other KeysSection) KeysSection {
	out := ks
	out.Ring = append(append([]KeyConfig(nil), ks.Ring...), other.Ring...)
	if other.Default != "" {
		out.Default = other.Default
	}
	if other.Algorithm != "" {
		out.Algorithm = other.Algorithm
	}
	return out
}

// Resolve returns ks merged with its File, if any.
func (ks KeysSection) Resolve() (KeysSection, error) {
	if ks.File == "" {
		return ks, nil
	}
	fromFile, err := LoadKeysFile(ks.File)
	if err != nil {
		return KeysSection{}, err
	}
	return ks.Merge(fromFile), nil
}

// BuildKeyRing resolves File and builds the ring. Passphrase keys are
// derived with Argon2id, which is deliberately slow.
func BuildKeyRing(ks KeysSection) (*dataprotect.KeyRing, error) {
	ks, err := ks.Resolve()
	if err != nil {
		return nil, err
	}
	if len(ks.Ring) == 0 {
		return nil, dataprotect.ErrNoKeys
	}

	keys := make([]*dataprotect.Key, 0, len(ks.Ring))
	for i, kc := range ks.Ring {
		k, err := kc.build(ks.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("keys.ring[%d]: %w", i, err)
		}
		keys = append(keys, k)
	}

	defaultID, err := ks.defaultID(keys)
	if err != nil {
		return nil, err
	}
	return dataprotect.NewKeyRing(defaultID, keys...)
}

func (ks KeysSection) defaultID(keys []*dataprotect.Key) (ulid.ULID, error) {
	if ks.Default == "" {
		if len(keys) != 1 {
			return ulid.ULID{}, ErrNoDefaultKey
		}
		return keys[0].ID, nil
	}
	return dataprotect.ParseKeyID(ks.Default)
}

// build turns the entry into a key. fallbackAlg applies when the entry has
// no algorithm of its own.
func (kc KeyConfig) build(fallbackAlg string) (*dataprotect.Key, error) {
	id, alg, err := kc.check(fallbackAlg)
	if err != nil {
		return nil, err
	}
	if kc.Passphrase != "" {
		return dataprotect.DeriveKey(id, []byte(kc.Passphrase), alg)
	}
	material, err := dataprotect.DecodeMaterial(kc.Secret)
	if err != nil {
		return nil, err
	}
	return dataprotect.NewKey(id, material, alg)
}

// check validates the entry without deriving key material.
func (kc KeyConfig) check(fallbackAlg string) (ulid.ULID, adaptive.CipherType, error) {
	id, err := dataprotect.ParseKeyID(kc.ID)
	if err != nil {
		return id, "", err
	}

	name := kc.Algorithm
	if name == "" {
		name = fallbackAlg
	}
	alg, err := adaptive.ParseCipherType(name)
	if err != nil {
		return id, "", err
	}

	switch {
	case kc.Secret != "" && kc.Passphrase != "":
		return id, "", fmt.Errorf("key %s: secret and passphrase are mutually exclusive", kc.ID)
	case kc.Secret == "" && kc.Passphrase == "":
		return id, "", fmt.Errorf("key %s: one of secret or passphrase is required", kc.ID)
	case kc.Passphrase != "" && len(kc.Passphrase) < dataprotect.MinPassphraseLength:
		return id, "", fmt.Errorf("key %s: %w", kc.ID, dataprotect.ErrPassphraseTooShort)
	}
	return id, alg, nil
}
