package fakeapi

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/miracckms/Couse-Selector-Advance/internal/prefs"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signupRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

type profileRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

func currentUsername(c *gin.Context) string {
	return c.GetString(userKey)
}

// tokenResponse mirrors the backend's JWT response: tokens plus profile.
func (s *Server) tokenResponse(u *user, access, refresh string) gin.H {
	resp := u.profile()
	resp["token"] = access
	resp["refreshToken"] = refresh
	resp["type"] = "Bearer"
	return resp
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	if !ok || u.Password != req.Password {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid username or password"})
		return
	}
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = u.Username
	epoch := s.epoch
	s.mu.Unlock()

	access, err := s.issueAccessToken(u.Username, epoch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, s.tokenResponse(u, access, refresh))
}

func (s *Server) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Username]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Error: Username is already taken!"})
		return
	}
	u := s.addUserLocked(req.Username, req.Password, req.Email)
	u.FirstName, u.LastName = req.FirstName, req.LastName

	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully!"})
}

// refresh keeps the presented refresh token and only issues a new access
// token, like the real backend.
func (s *Server) refresh(c *gin.Context) {
	s.mu.Lock()
	s.refreshCalls++
	rejected := s.rejectRefresh
	s.mu.Unlock()

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	username, ok := s.refreshTokens[req.RefreshToken]
	u := s.users[username]
	epoch := s.epoch
	s.mu.Unlock()

	if rejected || !ok || u == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Refresh token is not valid!"})
		return
	}

	access, err := s.issueAccessToken(username, epoch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, s.tokenResponse(u, access, req.RefreshToken))
}

func (s *Server) logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		s.mu.Lock()
		delete(s.refreshTokens, req.RefreshToken)
		s.mu.Unlock()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully!"})
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.users[currentUsername(c)].profile())
}

func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[currentUsername(c)]
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	c.JSON(http.StatusOK, u.profile())
}

func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[currentUsername(c)]
	if u.Password != req.CurrentPassword {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Current password is incorrect"})
		return
	}
	u.Password = req.NewPassword
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (s *Server) getPreferences(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.preferences[currentUsername(c)])
}

// putPreferences replaces every known field; fields missing from the body
// are cleared.
func (s *Server) putPreferences(c *gin.Context) {
	body, ok := bindPreferences(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[currentUsername(c)] = body
	c.JSON(http.StatusOK, body)
}

// patchPreferences sets only the fields present with a non-null value.
func (s *Server) patchPreferences(c *gin.Context) {
	body, ok := bindPreferences(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	username := currentUsername(c)
	stored := s.preferences[username]
	for k, v := range body {
		stored[k] = v
	}
	s.patches = append(s.patches, body)
	c.JSON(http.StatusOK, stored)
}

// bindPreferences decodes a preference body and keeps the known, non-null
// fields.
func bindPreferences(c *gin.Context) (map[string]any, bool) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return nil, false
	}

	known := prefs.FieldNames()
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if v == nil || !slices.Contains(known, k) {
			continue
		}
		out[k] = v
	}
	return out, true
}
