package pasetotoken

import (
	"strings"

	paseto "aidanwoods.dev/go-paseto"

	"github.com/Alijeyrad/dentlab_backend/config"
)

type Mode string

const (
	ModeLocal  Mode = "local"  // v4.local, encrypted
	ModePublic Mode = "public" // v4.public, signed
)

// Keys holds the key material for one mode. A public-mode Keys without a
// secret can verify tokens but not issue them.
type Keys struct {
	Mode      Mode
	Symmetric *paseto.V4SymmetricKey
	Secret    *paseto.V4AsymmetricSecretKey
	Public    *paseto.V4AsymmetricPublicKey
}

// KeysFromConfig decodes the hex keys of the configured mode; an empty mode
// means local.
func KeysFromConfig(p config.PasetoConfig) (Keys, error) {
	switch Mode(p.Mode) {
	case ModeLocal, "":
		return localKeys(strings.TrimSpace(p.LocalKeyHex))
	case ModePublic:
		return publicKeys(strings.TrimSpace(p.SecretKeyHex), strings.TrimSpace(p.PublicKeyHex))
	default:
		return Keys{}, ConfigError{Reason: "unknown mode " + p.Mode + " (use local or public)"}
	}
}

func localKeys(hexKey string) (Keys, error) {
	if hexKey == "" {
		return Keys{}, ConfigError{Reason: "local mode needs local_key_hex"}
	}
	k, err := paseto.V4SymmetricKeyFromHex(hexKey)
	if err != nil {
		return Keys{}, ConfigError{Reason: "local_key_hex: " + err.Error()}
	}
	return Keys{Mode: ModeLocal, Symmetric: &k}, nil
}

func publicKeys(secretHex, publicHex string) (Keys, error) {
	out := Keys{Mode: ModePublic}
	if secretHex != "" {
		sk, err := paseto.NewV4AsymmetricSecretKeyFromHex(secretHex)
		if err != nil {
			return Keys{}, ConfigError{Reason: "secret_key_hex: " + err.Error()}
		}
		pk := sk.Public()
		out.Secret, out.Public = &sk, &pk
	}
	// an explicit public key wins over the derived one
	if publicHex != "" {
		pk, err := paseto.NewV4AsymmetricPublicKeyFromHex(publicHex)
		if err != nil {
			return Keys{}, ConfigError{Reason: "public_key_hex: " + err.Error()}
		}
		out.Public = &pk
	}
	if out.Public == nil {
		return Keys{}, ConfigError{Reason: "public mode needs secret_key_hex or public_key_hex"}
	}
	return out, nil
}

// NewLocalKeys generates a throwaway symmetric key, for tests and tooling.
func NewLocalKeys() Keys {
	k := paseto.NewV4SymmetricKey()
	return Keys{Mode: ModeLocal, Symmetric: &k}
}

func NewPublicKeys() Keys {
	sk := paseto.NewV4AsymmetricSecretKey()
	pk := sk.Public()
	return Keys{Mode: ModePublic, Secret: &sk, Public: &pk}
}
