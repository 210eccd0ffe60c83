package command

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/valtok-go/pkg/crypto/adaptive"
	"github.com/yndnr/valtok-go/pkg/dataprotect"
	"github.com/yndnr/valtok-go/pkg/token"
)

// KeyCommand returns the key subcommand group.
func KeyCommand() *cli.Command {
	algorithmFlag := &cli.StringFlag{
		Name:    "algorithm",
		Aliases: []string{"a"},
		Usage:   "Cipher: aes-gcm, chacha20-poly1305 (empty picks the platform's preferred one)",
	}

	return &cli.Command{
		Name:  "key",
		Usage: "Key ring material",
		Subcommands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Generate a random key entry for keys.ring",
				Flags:  []cli.Flag{algorithmFlag},
				Action: keyGenerate,
			},
			{
				Name:  "derive",
				Usage: "Derive a key entry from a passphrase and print its fingerprint",
				Flags: []cli.Flag{
					algorithmFlag,
					&cli.StringFlag{
						Name:    "passphrase",
						Usage:   "Passphrase (at least 12 characters)",
						EnvVars: []string{"VALTOK_KEY_PASSPHRASE"},
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Key ID (ULID); a new one is generated when empty",
					},
				},
				Action: keyDerive,
			},
		},
	}
}

// keyOutput mirrors config.KeyConfig so YAML output can be pasted into
// keys.ring.
type keyOutput struct {
	ID          string    `json:"id" yaml:"id"`
	Secret      string    `json:"secret,omitempty" yaml:"secret,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Algorithm   string    `json:"algorithm" yaml:"algorithm"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

func keyGenerate(c *cli.Context) error {
	alg, err := adaptive.ParseCipherType(c.String("algorithm"))
	if err != nil {
		return err
	}
	key, err := dataprotect.GenerateKey(alg)
	if err != nil {
		return err
	}
	return printResult(c, keyOutput{
		ID:        key.ID.String(),
		Secret:    dataprotect.EncodeMaterial(key.Material),
		Algorithm: string(key.Algorithm),
		CreatedAt: key.CreatedAt(),
	})
}

// keyDerive never prints derived material; the passphrase itself goes into
// the ring entry.
func keyDerive(c *cli.Context) error {
	passphrase := c.String("passphrase")
	if passphrase == "" {
		return fmt.Errorf("--passphrase or VALTOK_KEY_PASSPHRASE is required")
	}
	alg, err := adaptive.ParseCipherType(c.String("algorithm"))
	if err != nil {
		return err
	}

	id := ulid.Make()
	if s := c.String("id"); s != "" {
		if id, err = dataprotect.ParseKeyID(s); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(c.App.ErrWriter, "generated key id %s; pass --id to derive the same key again\n", id)
	}

	key, err := dataprotect.DeriveKey(id, []byte(passphrase), alg)
	if err != nil {
		return err
	}
	return printResult(c, keyOutput{
		ID:          key.ID.String(),
		Fingerprint: token.Fingerprint(dataprotect.EncodeMaterial(key.Material)),
		Algorithm:   string(key.Algorithm),
		CreatedAt:   key.CreatedAt(),
	})
}
