package command

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/valtok-go/internal/config"
	"github.com/yndnr/valtok-go/pkg/dataprotect"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show the effective configuration with secrets redacted",
				ArgsUsage: "[FILE]",
				Action:    configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file and build its key ring",
				ArgsUsage: "[FILE]",
				Action:    configValidate,
			},
			{
				Name:      "keys",
				Usage:     "List the key ring",
				ArgsUsage: "[FILE]",
				Action:    configKeys,
			},
		},
	}
}

// configPath prefers the positional FILE over --config.
func configPath(c *cli.Context) string {
	if p := c.Args().First(); p != "" {
		return p
	}
	return ParseGlobalFlags(c).Config
}

func configShow(c *cli.Context) error {
	cfg, err := config.Load(configPath(c))
	if err != nil {
		return err
	}
	return printResult(c, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	path := configPath(c)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ring, err := config.BuildKeyRing(cfg.Keys)
	if err != nil {
		return fmt.Errorf("invalid key ring: %w", err)
	}

	if path == "" {
		path = "(defaults and environment)"
	}
	fmt.Fprintf(c.App.Writer, "configuration is valid: %s (%d keys, default %s)\n", path, ring.Len(), ring.DefaultKeyID())
	return nil
}

type keyRow struct {
	ID        string    `json:"id" yaml:"id"`
	Algorithm string    `json:"algorithm" yaml:"algorithm"`
	Default   bool      `json:"default" yaml:"default"`
	Source    string    `json:"source" yaml:"source"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// configKeys lists ring entries without building them, so it works for
// rings that fail validation.
func configKeys(c *cli.Context) error {
	cfg, err := config.Load(configPath(c))
	if err != nil {
		return err
	}
	keys, err := cfg.Keys.Resolve()
	if err != nil {
		return err
	}

	rows := make([]keyRow, 0, len(keys.Ring))
	for _, kc := range keys.Ring {
		row := keyRow{ID: kc.ID, Algorithm: kc.Algorithm, Source: "secret"}
		if row.Algorithm == "" {
			row.Algorithm = keys.Algorithm
		}
		if kc.Passphrase != "" {
			row.Source = "passphrase"
		}
		if id, err := dataprotect.ParseKeyID(kc.ID); err == nil {
			row.CreatedAt = ulid.Time(id.Time()).UTC()
		}
		row.Default = kc.ID == keys.Default || (keys.Default == "" && len(keys.Ring) == 1)
		rows = append(rows, row)
	}
	return printResult(c, rows)
}
