// Package fakeapi is an in-memory stand-in for the course-selector backend.
// It implements the auth and preference routes the client depends on and
// issues short-lived HS256 access tokens so refresh paths can be exercised
// locally and in tests.
package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/miracckms/Couse-Selector-Advance/internal/prefs"
	"github.com/rs/zerolog"
)

const (
	DefaultBasePath  = "/api"
	DefaultAccessTTL = 15 * time.Minute
	issuer           = "course-selector-fakeapi"
)

var errInvalidToken = errors.New("invalid or expired token")

type Options struct {
	// Secret signs access tokens. A random one is generated when empty.
	Secret    []byte
	AccessTTL time.Duration
	BasePath  string
	Logger    *zerolog.Logger
	Now       func() time.Time
}

type user struct {
	ID        string
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Roles     []string
}

func (u *user) profile() gin.H {
	return gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"roles":     u.Roles,
	}
}

// Server holds all backend state in memory.
type Server struct {
	opts   Options
	parser *jwt.Parser
	logger zerolog.Logger
	engine *gin.Engine

	mu            sync.Mutex
	users         map[string]*user
	refreshTokens map[string]string
	preferences   map[string]map[string]any
	epoch         int
	refreshCalls  int
	patches       []map[string]any
	rejectRefresh bool
}

func New(opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte(uuid.NewString())
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	s := &Server{
		opts: opts,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
			jwt.WithIssuer(issuer),
			jwt.WithTimeFunc(opts.Now),
		),
		logger:        logger.With().Str("component", "fakeapi").Logger(),
		users:         make(map[string]*user),
		refreshTokens: make(map[string]string),
		preferences:   make(map[string]map[string]any),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	api := router.Group(s.opts.BasePath)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", s.login)
		authGroup.POST("/signup", s.signup)
		authGroup.POST("/refresh-token", s.refresh)
		authGroup.POST("/logout", s.logout)
	}

	protected := api.Group("/")
	protected.Use(s.requireUser())
	{
		protected.GET("/auth/me", s.me)
		protected.PUT("/auth/profile", s.updateProfile)
		protected.PUT("/auth/change-password", s.changePassword)
		protected.GET("/preferences", s.getPreferences)
		protected.PUT("/preferences", s.putPreferences)
		protected.PATCH("/preferences", s.patchPreferences)
	}

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

// AddUser registers an account directly, bypassing /auth/signup.
func (s *Server) AddUser(username, password, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserLocked(username, password, email)
}

func (s *Server) addUserLocked(username, password, email string) *user {
	u := &user{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Password: password,
		Roles:    []string{"ROLE_USER"},
	}
	s.users[username] = u
	s.preferences[username] = map[string]any{
		prefs.FieldTheme:        "light",
		prefs.FieldLanguage:     "tr",
		prefs.FieldScheduleMode: "auto",
		prefs.FieldActiveTab:    "schedule",
	}
	return u
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
}

// RejectRefresh makes /auth/refresh-token fail until called with false.
func (s *Server) RejectRefresh(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectRefresh = reject
}

// RefreshCalls counts requests to /auth/refresh-token.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Patches returns the bodies of every accepted PATCH /preferences.
func (s *Server) Patches() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.patches))
	copy(out, s.patches)
	return out
}

// Preferences returns the stored preference record for username.
func (s *Server) Preferences(username string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.preferences[username]))
	for k, v := range s.preferences[username] {
		out[k] = v
	}
	return out
}

type accessClaims struct {
	Epoch int `json:"epoch"`
	jwt.RegisteredClaims
}

func (s *Server) issueAccessToken(username string, epoch int) (string, error) {
	now := s.opts.Now()
	claims := accessClaims{
		Epoch: epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
}

func (s *Server) validateAccessToken(token string) (string, error) {
	var claims accessClaims
	_, err := s.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.opts.Secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidToken, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if claims.Epoch != s.epoch {
		return "", errInvalidToken
	}
	if _, ok := s.users[claims.Subject]; !ok {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

const userKey = "fakeapiUser"

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing authorization header"})
			return
		}
		username, err := s.validateAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}
		c.Set(userKey, username)
		c.Next()
	}
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
