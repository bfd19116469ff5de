package cli

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"finboard/internal/report/sheets"
)

var (
	authPort      string
	authTokenFile string
)

// sheetsAuthCmd stores an OAuth user token for the sheets report generator.
// The redirect URI http://localhost:<port>/callback must be registered on the
// OAuth client.
var sheetsAuthCmd = &cobra.Command{
	Use:   "sheets-auth",
	Short: "Authorize Google Sheets report export with a user account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadEnvFile()
		clientJSON, err := sheets.OAuthClientJSON()
		if err != nil {
			return err
		}
		if clientJSON == nil {
			return errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
		}
		cfg, err := sheets.OAuthConfig(clientJSON)
		if err != nil {
			return err
		}

		ln, err := net.Listen("tcp", "localhost:"+authPort)
		if err != nil {
			return fmt.Errorf("listen for callback: %w", err)
		}
		out := cmd.OutOrStdout()
		tok, err := sheets.Authorize(cmd.Context(), cfg, ln, func(url string) {
			fmt.Fprintf(out, "Open this URL to authorize:\n%s\n", url)
		})
		if err != nil {
			return err
		}
		if err := sheets.SaveToken(authTokenFile, tok); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved token to %s\n", authTokenFile)
		return nil
	},
}

func init() {
	port := os.Getenv("OAUTH_REDIRECT_PORT")
	if port == "" {
		port = "8085"
	}
	tokenFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if tokenFile == "" {
		tokenFile = "token.json"
	}
	sheetsAuthCmd.Flags().StringVar(&authPort, "port", port, "local port for the OAuth redirect")
	sheetsAuthCmd.Flags().StringVar(&authTokenFile, "token-file", tokenFile, "where to write the token")
	rootCmd.AddCommand(sheetsAuthCmd)
}
