package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// Scopes requested for Drive access. Read-only is enough to list, export
// and download.
var Scopes = []string{drive.DriveReadonlyScope}

// ErrNoToken indicates OAuth client credentials without a stored user token.
var ErrNoToken = errors.New("google: no stored user token, authorise the OAuth client first")

// NewTokenSource builds a token source from a credentials file.
//
// A service account key is used directly. An OAuth client secret needs a
// stored user token in tokenFile; refreshed tokens are written back to it.
func NewTokenSource(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	if probe.Type == "service_account" {
		creds, err := googleoauth.CredentialsFromJSON(ctx, data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("load service account: %w", err)
		}
		return creds.TokenSource, nil
	}

	cfg, err := googleoauth.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("load oauth client: %w", err)
	}

	tok, err := readToken(tokenFile)
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		path: tokenFile,
		last: tok.AccessToken,
	}, nil
}

func readToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, ErrNoToken
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &tok, nil
}

// persistingTokenSource saves the token whenever the access token changes.
type persistingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

// Token implements oauth2.TokenSource.
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := writeToken(s.path, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}
