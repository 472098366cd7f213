// Package auth provides the auth relay: a small fiber server implementing a
// GitHub OAuth login flow and a session-cookie gate in front of the private
// /pdfs resource. Unlike the chat relay's open CORS surface, this server
// allows exactly one origin and permits credentials.
package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/alfredmayaki/chatrelay/pkg/logger"
)

const (
	loginPath    = "/auth/login"
	callbackPath = "/auth/callback"
	logoutPath   = "/auth/logout"
	pdfsPath     = "/pdfs"

	sessionCookie = "session"
	sessionTTL    = 8 * time.Hour

	githubAuthorizeURL = "https://github.com/login/oauth/authorize"
	githubTokenURL     = "https://github.com/login/oauth/access_token"
)

// Relay is the auth relay server.
type Relay struct {
	config Config
	client *http.Client
	logger *slog.Logger
	server *fiber.App
}

// New creates a new auth Relay. It fails fast on missing credentials rather
// than answering requests that can only end in an opaque OAuth failure.
func New(config Config, log *slog.Logger) (*Relay, error) {
	if config.AllowedOrigin == "" {
		return nil, errors.New("allowed origin is required")
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, errors.New("missing GitHub OAuth credentials; set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET")
	}
	if config.SessionSecret == "" {
		return nil, errors.New("missing session secret; set SESSION_SECRET")
	}

	if config.PostLoginRedirectURL == "" {
		config.PostLoginRedirectURL = "/pdf-viewer.html"
	}
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = githubAuthorizeURL
	}
	if config.TokenURL == "" {
		config.TokenURL = githubTokenURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	r := &Relay{
		config: config,
		client: config.HTTPClient,
		logger: log,
		server: app,
	}

	// Strict single-origin CORS with credentials: the session cookie rides
	// cross-site, so the allow-list must name the one trusted origin rather
	// than echoing whatever the browser sent.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.AllowedOrigin,
		AllowCredentials: true,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Content-Type",
		MaxAge:           86400,
	}))

	app.Get(loginPath, r.handleLogin)
	app.Get(callbackPath, r.handleCallback)
	app.Get(logoutPath, r.handleLogout)
	app.Get(pdfsPath, r.handlePDFs)

	return r, nil
}

// Run starts the auth server on the configured listening address.
func (r *Relay) Run() error {
	r.logger.Info("starting auth server",
		"listen", r.config.ListenAddr,
		"origin", r.config.AllowedOrigin,
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the auth server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting auth server",
		"listen", listener.Addr().String(),
		"origin", r.config.AllowedOrigin,
	)

	return r.server.Listener(listener)
}

// Close gracefully shuts down the auth server.
func (r *Relay) Close() error {
	return r.server.Shutdown()
}

// handleLogin redirects the browser to the GitHub authorize page.
func (r *Relay) handleLogin(c *fiber.Ctx) error {
	authorize, err := url.Parse(r.config.AuthorizeURL)
	if err != nil {
		return fmt.Errorf("parsing authorize URL: %w", err)
	}

	q := authorize.Query()
	q.Set("client_id", r.config.ClientID)
	q.Set("redirect_uri", r.callbackURL(c))
	q.Set("scope", "read:user")
	authorize.RawQuery = q.Encode()

	return c.Redirect(authorize.String(), fiber.StatusFound)
}

// handleCallback exchanges the authorization code for a token and, on
// success, sets the session cookie and sends the browser to the post-login
// page. A top-level navigation redirect needs no CORS headers.
func (r *Relay) handleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing code")
	}

	token, err := r.exchangeCode(c, code)
	if err != nil {
		r.logger.Error("OAuth code exchange failed", "error", err)
		return c.Status(fiber.StatusUnauthorized).SendString("OAuth failed")
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).SendString("OAuth failed")
	}

	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    r.config.SessionSecret,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})

	return c.Redirect(r.config.PostLoginRedirectURL, fiber.StatusFound)
}

// handleLogout clears the session cookie.
func (r *Relay) handleLogout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})

	return c.SendString("OK")
}

// handlePDFs gates the private resource behind the session cookie. An
// unauthorized XHR gets a 401 with the login URL so the front end can
// navigate there interactively instead of following a redirect it cannot see.
func (r *Relay) handlePDFs(c *fiber.Ctx) error {
	session := c.Cookies(sessionCookie)
	if session == "" || session != r.config.SessionSecret {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":    "unauthorized",
			"loginUrl": c.BaseURL() + loginPath,
		})
	}

	return c.JSON(fiber.Map{"pdfs": []string{}})
}

// callbackURL derives this server's callback endpoint from the request, so
// the OAuth app works unchanged across environments.
func (r *Relay) callbackURL(c *fiber.Ctx) string {
	return c.BaseURL() + callbackPath
}

// tokenResponse is the provider's code-exchange reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// exchangeCode trades the authorization code for an access token.
func (r *Relay) exchangeCode(c *fiber.Ctx, code string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     r.config.ClientID,
		"client_secret": r.config.ClientSecret,
		"code":          code,
		"redirect_uri":  r.callbackURL(c),
	})
	if err != nil {
		return "", fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(c.Context(), http.MethodPost, r.config.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chatrelay-auth")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}

	tok := tokenResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}

	return tok.AccessToken, nil
}
