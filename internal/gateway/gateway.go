package gateway

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chatgo-dev/chatgo/internal/httpapi"
)

// Gateway authenticates requests and proxies them to the backend
// services.
type Gateway struct {
	users      *UserStore
	tokens     *TokenIssuer
	limiter    *RateLimiter
	sessionURL *url.URL
	nluURL     *url.URL
}

// New creates a gateway in front of the given session and NLU service
// base URLs.
func New(users *UserStore, tokens *TokenIssuer, limiter *RateLimiter, sessionURL, nluURL *url.URL) *Gateway {
	return &Gateway{
		users:      users,
		tokens:     tokens,
		limiter:    limiter,
		sessionURL: sessionURL,
		nluURL:     nluURL,
	}
}

// Router builds the gateway's echo server.
func (g *Gateway) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(httpapi.MetricsMiddleware())
	e.Use(g.rateLimit)

	e.POST("/api/auth/login", g.Login)
	e.POST("/api/auth/register", g.Register)

	sessionProxy := proxyTo(g.sessionURL)

	// Public chat bypasses authentication; the session service runs it
	// as the demo user. The identity header is still stripped so an
	// anonymous caller cannot impersonate anyone.
	e.Group("/api/chat/message/public", stripIdentity, sessionProxy)

	e.Group("/api/chat", g.requireAuth, sessionProxy)
	e.Group("/api/sessions", g.requireAuth, sessionProxy)
	e.Group("/api/nlu", g.requireAuth, proxyTo(g.nluURL))

	return e
}

func proxyTo(target *url.URL) echo.MiddlewareFunc {
	return middleware.Proxy(middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{
		{URL: target},
	}))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user and returns a bearer token.
// POST /api/auth/login
func (g *Gateway) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "username and password are required"})
	}

	if err := g.users.Authenticate(req.Username, req.Password); err != nil {
		log.Printf("gateway: failed login for user %s", req.Username)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}

	token, err := g.tokens.Issue(req.Username)
	if err != nil {
		log.Printf("ERROR: failed to issue token: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"token": token,
		"type":  "Bearer",
	})
}

// Register creates a new user account.
// POST /api/auth/register
func (g *Gateway) Register(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "username and password are required"})
	}

	if err := g.users.Register(req.Username, req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "registration failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "User registered successfully"})
}

// requireAuth verifies the bearer token and stamps the caller's
// identity on the X-User-Id header before the request is proxied.
// Client-supplied identity headers are always discarded.
func (g *Gateway) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Request().Header.Del(httpapi.UserIDHeader)

		const prefix = "Bearer "
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(auth, prefix) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}

		subject, err := g.tokens.Verify(strings.TrimPrefix(auth, prefix))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		c.Request().Header.Set(httpapi.UserIDHeader, subject)
		return next(c)
	}
}

func stripIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Request().Header.Del(httpapi.UserIDHeader)
		return next(c)
	}
}

func (g *Gateway) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !g.limiter.Allow(c.RealIP()) {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
		return next(c)
	}
}
