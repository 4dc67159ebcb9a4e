package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/tasks/v1"
)

const (
	// ClientSecretsFile is the Google API credentials file (client_id,
	// client_secret, redirect_uris), looked up in the config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile caches the access and refresh token in the config directory.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local server captures the OAuth redirect.
	LocalhostAuthPort = "6789"

	oobRedirect = "urn:ietf:wg:oauth:2.0:oob"
	authTimeout = 5 * time.Minute
)

// Scopes needed to read and write Google Tasks.
var Scopes = []string{tasks.TasksScope}

// GetConfig creates an oauth2.Config from the client secrets file in dir.
func GetConfig(dir string, scopes []string, logger *slog.Logger) (*oauth2.Config, error) {
	clientSecretsFile := filepath.Join(dir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	redirect, note := normalizeRedirect(config.RedirectURL)
	if note != "" {
		logger.Warn(note, "configured", config.RedirectURL, "using", redirect)
	}
	config.RedirectURL = redirect
	return config, nil
}

// normalizeRedirect points localhost and out-of-band redirect URLs at
// LocalhostAuthPort, where getTokenFromWeb listens. The second return value
// describes the change, or is empty when nothing noteworthy happened.
func normalizeRedirect(redirect string) (string, string) {
	if redirect == oobRedirect {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort), "replacing out-of-band redirect URL"
	}

	parsed, err := url.Parse(redirect)
	if err != nil {
		return redirect, "could not parse redirect URL, using it as is"
	}

	host := parsed.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return redirect, "redirect URL is not a localhost callback, make sure it is correct for your setup"
	}

	port := parsed.Port()
	if port == LocalhostAuthPort {
		return redirect, ""
	}
	parsed.Host = net.JoinHostPort(host, LocalhostAuthPort)
	if port == "" {
		return parsed.String(), ""
	}
	return parsed.String(), "redirect port does not match the local callback port"
}

// GetClient returns an authenticated *http.Client. It loads the cached token
// from dir, or runs the browser flow when there is none. Refreshed tokens are
// written back to the cache.
func GetClient(ctx context.Context, dir string, scopes []string, logger *slog.Logger) (*http.Client, error) {
	config, err := GetConfig(dir, scopes, logger)
	if err != nil {
		return nil, err
	}

	tokenFile := filepath.Join(dir, TokenFile)
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		logger.Info("no cached token, starting web authorization", "token_file", tokenFile)
		tok, err = getTokenFromWeb(ctx, config, os.Stdout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	src := &savingTokenSource{
		base:   config.TokenSource(ctx, tok),
		path:   tokenFile,
		last:   tok,
		logger: logger,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// savingTokenSource writes a token to disk whenever the wrapped source hands
// out a different one.
type savingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			s.logger.Warn("could not save refreshed token", "error", err)
		} else {
			s.logger.Debug("saved refreshed token", "token_file", s.path)
		}
		s.last = tok
	}
	return tok, nil
}

// getTokenFromWeb runs the authorization code flow, capturing the redirect on
// a local HTTP server.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config, out io.Writer, logger *slog.Logger) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler:      callbackHandler(codeCh, errCh),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()

	// Offline access is what gets us a refresh token.
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(out, "Please open the following URL in your browser to authorize tasksync:\n%s\n", authURL)
	logger.Info("waiting for authorization code", "redirect", config.RedirectURL)

	select {
	case code := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exchangeCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization timed out. Please try again")
	}
}

func callbackHandler(codeCh chan<- string, errCh chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Authorization code not found", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
			default:
			}
			return
		}
		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		select {
		case codeCh <- code:
		default:
		}
	})
}

// tokenFromFile reads an oauth2.Token from a JSON file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

// saveToken writes tok to path, readable by the owner only.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("unable to encode OAuth token: %w", err)
	}
	return nil
}

// RemoveToken deletes the cached token in dir. A missing token is not an error.
func RemoveToken(dir string) (bool, error) {
	tokenFile := filepath.Join(dir, TokenFile)
	if err := os.Remove(tokenFile); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("could not delete token file '%s': %w", tokenFile, err)
	}
	return true, nil
}
