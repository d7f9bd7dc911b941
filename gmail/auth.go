package gmail

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gm "google.golang.org/api/gmail/v1"
)

// scopes covers reads, label changes and permanent deletes.
var scopes = []string{gm.MailGoogleComScope}

// refreshTokenConfig builds the OAuth config for the refresh token flow.
func refreshTokenConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}
}

// browserFlowToken loads the OAuth client from credentialsFile and a token
// from store, falling back to the interactive consent flow.
func browserFlowToken(ctx context.Context, credentialsFile string, store TokenStore) (*oauth2.Config, *oauth2.Token, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	tok, err := store.Load()
	if err == nil {
		return oauthConfig, tok, nil
	}
	if !errors.Is(err, ErrNoToken) {
		return nil, nil, err
	}
	tok, err = tokenFromWeb(ctx, oauthConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Save(tok); err != nil {
		return nil, nil, err
	}
	return oauthConfig, tok, nil
}

func tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)
	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}
	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}
