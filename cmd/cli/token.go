package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anstrom/netenum/internal/auth"
)

var (
	tokenRotate bool
	tokenShort  bool
)

// tokenCmd shows or rotates the API token.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show or rotate the API token",
	Long: `Print the bearer token stored in the token file, creating it if needed.
With --rotate a new token is generated. A running server keeps accepting
the old token until it is restarted.`,
	Example: `  netenum token
  netenum token --short
  netenum token --rotate`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().BoolVar(&tokenRotate, "rotate", false, "Generate a new token and overwrite the token file")
	tokenCmd.Flags().BoolVar(&tokenShort, "short", false, "Only print the token prefix")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return printToken(cmd.OutOrStdout(), cfg.API.TokenFile, tokenRotate, tokenShort)
}

func printToken(w io.Writer, path string, rotate, short bool) error {
	var (
		token   string
		created bool
		err     error
	)
	if rotate {
		token, err = auth.RotateToken(path)
		created = true
	} else {
		token, created, err = auth.LoadOrCreateToken(path)
	}
	if err != nil {
		return err
	}

	if short {
		token = auth.DisplayPrefix(token)
	}
	if created {
		fmt.Fprintf(w, "New token written to %s\n", path)
	}
	fmt.Fprintln(w, token)
	return nil
}
