package auth

import "net/http"

// Config holds the auth relay's configuration. Credentials come from the
// environment (GITHUB_CLIENT_ID, GITHUB_CLIENT_SECRET, SESSION_SECRET); they
// are never read from the config file.
type Config struct {
	// ListenAddr is the address for the auth server to listen on.
	ListenAddr string

	// AllowedOrigin is the single browser origin allowed to call this
	// server with credentials. Required.
	AllowedOrigin string

	// ClientID and ClientSecret identify the GitHub OAuth app.
	ClientID     string
	ClientSecret string

	// SessionSecret is the opaque value a valid session cookie must carry.
	SessionSecret string

	// PostLoginRedirectURL is where the callback sends the browser after a
	// successful login. Defaults to "/pdf-viewer.html".
	PostLoginRedirectURL string

	// AuthorizeURL and TokenURL point at the OAuth provider. Defaults are
	// GitHub's endpoints; tests override them.
	AuthorizeURL string
	TokenURL     string

	// HTTPClient is used for the code exchange. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}
