package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/models"
)

// healthCheck handles GET /health
func (s *Server) healthCheck(c *gin.Context) {
	respondOK(c, gin.H{
		"status":  "healthy",
		"service": "civicflow",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// RegisterRequest is the self-service signup payload. Only citizen and
// contractor accounts can be created this way; staff accounts are
// provisioned out of band.
type RegisterRequest struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     models.Role `json:"role" binding:"required"`
}

// register handles POST /api/v1/auth/register
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid registration payload: "+err.Error())
		return
	}
	if req.Role != models.RoleCitizen && req.Role != models.RoleContractor {
		respondBadRequest(c, "only citizen and contractor accounts may self-register")
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.SetPassword(req.Password); err != nil {
		respondBadRequest(c, "invalid password")
		return
	}

	if err := s.users.Create(c.Request.Context(), nil, user); err != nil {
		s.logger.Warn("Registration failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusConflict, Response{Success: false, Error: "account could not be created"})
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, gin.H{"token": token, "user": user})
}

// LoginRequest is the credential payload for POST /api/v1/auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login handles POST /api/v1/auth/login
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid login payload")
		return
	}

	user, err := s.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || !user.Active || !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid credentials"})
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"token": token, "user": user})
}

// uploadMedia handles POST /api/v1/media. The returned URL goes into
// attachment_urls or image_urls on a later request.
func (s *Server) uploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "a 'file' form field is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondBadRequest(c, "could not read upload")
		return
	}
	defer src.Close()

	url, err := s.media.Save(c.Request.Context(), file.Filename, src)
	if err != nil {
		s.logger.Warn("Media upload failed", zap.String("name", file.Filename), zap.Error(err))
		respondBadRequest(c, err.Error())
		return
	}

	respondCreated(c, gin.H{"url": url})
}
