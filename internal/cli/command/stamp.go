package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/valtok-go/pkg/token"
)

// StampCommand returns the stamp command.
func StampCommand() *cli.Command {
	return &cli.Command{
		Name:  "stamp",
		Usage: "Generate security stamps",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of stamps to generate",
				Value:   1,
			},
		},
		Action: stampNew,
	}
}

type stampOutput struct {
	SecurityStamp string `json:"security_stamp" yaml:"security_stamp"`
}

func stampNew(c *cli.Context) error {
	count := c.Int("count")
	if count < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", count)
	}

	next := token.NewStampGenerator(nil).New
	if client := Remote(c); client != nil {
		next = func() (string, error) {
			ctx, cancel := requestContext(c)
			defer cancel()
			return client.NewStamp(ctx)
		}
	}

	stamps := make([]stampOutput, 0, count)
	for range count {
		s, err := next()
		if err != nil {
			return fmt.Errorf("generate stamp: %w", err)
		}
		stamps = append(stamps, stampOutput{SecurityStamp: s})
	}

	if count == 1 {
		return printResult(c, stamps[0])
	}
	return printResult(c, stamps)
}
