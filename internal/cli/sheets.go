package cli

import (
	"context"

	"finanze/internal/config"
	"finanze/internal/log"
	"finanze/internal/sheets"
	gsheet "finanze/internal/sheets/google"
)

// InitSheets connects to Google Sheets, preferring a service account over an
// OAuth user token. It returns nil when neither is configured.
func InitSheets(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.ReadWriter, error) {
	logger = logger.WithComponent(log.ComponentSheets)

	switch {
	case cfg.HasGoogleCredentials():
		b, err := cfg.GoogleCredentials()
		if err != nil {
			return nil, err
		}
		client, err := gsheet.New(ctx, b)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			return nil, err
		}
		logger.Info("Google Sheets client initialized", "auth", "service_account")
		return client, nil

	case cfg.HasGoogleOAuth():
		clientJSON, err := cfg.GoogleOAuthClient()
		if err != nil {
			return nil, err
		}
		tokenJSON, err := cfg.GoogleOAuthToken()
		if err != nil {
			return nil, err
		}
		client, err := gsheet.NewWithOAuth(ctx, clientJSON, tokenJSON)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			return nil, err
		}
		logger.Info("Google Sheets client initialized", "auth", "oauth")
		return client, nil
	}

	logger.Info("Google Sheets disabled - no credentials configured")
	return nil, nil
}
