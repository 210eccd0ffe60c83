package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/valtok-go/internal/cli/connection"
	"github.com/yndnr/valtok-go/internal/cli/output"
	"github.com/yndnr/valtok-go/internal/config"
	"github.com/yndnr/valtok-go/internal/infra/buildinfo"
	"github.com/yndnr/valtok-go/internal/telemetry/logger"
	"github.com/yndnr/valtok-go/pkg/token"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "valtok",
		Usage:   "Issue and check validation tokens and security stamps",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			StampCommand(),
			KeyCommand(),
			TokenCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (VALTOK_* environment variables apply on top)",
			EnvVars: []string{"VALTOK_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Use a running valtok server (e.g., localhost:8080) instead of the local key ring",
			EnvVars: []string{"VALTOK_CLI_SERVER"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"k"},
			Usage:   "API key for --server",
			EnvVars: []string{"VALTOK_CLI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log token rejection reasons to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config  string
	Server  string
	APIKey  string
	Output  string
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:  c.String("config"),
		Server:  c.String("server"),
		APIKey:  c.String("api-key"),
		Output:  c.String("output"),
		Verbose: c.Bool("verbose"),
	}
}

// Remote returns a client for --server, or nil when commands run locally.
func Remote(c *cli.Context) *connection.HTTPClient {
	flags := ParseGlobalFlags(c)
	if flags.Server == "" {
		return nil
	}
	return connection.NewHTTPClient(flags.Server, flags.APIKey)
}

// requestContext bounds a single remote call.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, connection.DefaultTimeout)
}

// printResult writes data to the app's writer in the selected format.
func printResult(c *cli.Context, data any) error {
	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// loadConfig loads --config and verifies it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ParseGlobalFlags(c).Config)
	if err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// localProvider builds a token provider from the configured key ring.
func localProvider(c *cli.Context) (*token.Provider, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	ring, err := config.BuildKeyRing(cfg.Keys)
	if err != nil {
		return nil, fmt.Errorf("build key ring: %w", err)
	}

	sink := token.NopSink
	if ParseGlobalFlags(c).Verbose {
		l, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: c.App.ErrWriter})
		if err != nil {
			return nil, err
		}
		sink = logger.TokenSink(l)
	}

	return token.NewProvider(ring,
		token.WithLifespan(cfg.Token.Lifespan),
		token.WithName(cfg.Token.ProviderName),
		token.WithSink(sink),
	)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// timestamp formats times in command output.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
