package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	gsheet "finanze/internal/sheets/google"
)

var redirectPort string

// sheetsAuthCmd runs the OAuth consent flow once and saves the token that
// the server and worker use when no service account is configured.
func sheetsAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize Google Sheets access as a user and save the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			clientJSON, err := cfg.GoogleOAuthClient()
			if err != nil {
				return err
			}
			oauthCfg, err := gsheet.OAuthConfig(clientJSON)
			if err != nil {
				return err
			}
			oauthCfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

			tok, err := authorize(cmd, oauthCfg)
			if err != nil {
				return err
			}
			if err := saveToken(cfg.GoogleOAuthTokenFile, tok); err != nil {
				return err
			}
			cmd.Printf("Saved token to %s\n", cfg.GoogleOAuthTokenFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&redirectPort, "redirect-port", "8085", "local port of the OAuth redirect URI")
	return cmd
}

func authorize(cmd *cobra.Command, oauthCfg *oauth2.Config) (*oauth2.Token, error) {
	state := fmt.Sprintf("finanze-%d", time.Now().UnixNano())
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			select {
			case errCh <- errors.Newf("oauth error: %s", errStr):
			default:
			}
			return
		}
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})

	ln, err := net.Listen("tcp", "localhost:"+redirectPort)
	if err != nil {
		return nil, errors.Wrap(err, "listen for oauth redirect")
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	cmd.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	select {
	case code := <-codeCh:
		tok, err := oauthCfg.Exchange(ctx, code)
		if err != nil {
			return nil, errors.Wrap(err, "token exchange")
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(5 * time.Minute):
		return nil, errors.New("authorization timed out")
	case <-ctx.Done():
		return nil, errors.New("interrupted")
	}
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrap(err, "open token file")
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return errors.Wrap(err, "write token")
	}
	return nil
}
