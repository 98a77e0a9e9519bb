package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the public authentication endpoints under /auth.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", handler.register)
		authGroup.POST("/login", handler.login)
	}
}

// RegisterProtectedRoutes mounts the authenticated account endpoints under /auth.
func RegisterProtectedRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/logout", handler.logout)
		authGroup.GET("/user", handler.profile)
		authGroup.PUT("/user", handler.updateProfile)
		authGroup.PUT("/change-password", handler.changePassword)
	}
}

type httpHandler struct {
	service *Service
}

type registerRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8,max=72"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

type userPayload struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name,omitempty"`
	IsAdmin     bool       `json:"is_admin"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

type authPayload struct {
	User   userPayload `json:"user"`
	Tokens struct {
		AccessToken        string `json:"access_token"`
		AccessTokenExpiry  int64  `json:"access_token_expires_at"`
		RefreshToken       string `json:"refresh_token"`
		RefreshTokenExpiry int64  `json:"refresh_token_expires_at"`
	} `json:"tokens"`
}

func (h *httpHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Register(c.Request.Context(), RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailAlreadyExists):
			respondError(c, http.StatusConflict, "email already registered")
		case errors.Is(err, ErrInvalidCredentials):
			respondError(c, http.StatusBadRequest, "invalid credentials")
		default:
			respondError(c, http.StatusInternalServerError, "failed to register user")
		}
		return
	}

	respondData(c, http.StatusCreated, marshalAuthPayload(result))
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Login(c.Request.Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	respondData(c, http.StatusOK, marshalAuthPayload(result))
}

func (h *httpHandler) logout(c *gin.Context) {
	userID, _, ok := RequireUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Logout(c.Request.Context(), userID, req.RefreshToken); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to log out")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

func (h *httpHandler) profile(c *gin.Context) {
	userID, _, ok := RequireUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load profile")
		return
	}

	respondData(c, http.StatusOK, marshalUser(user))
}

func (h *httpHandler) updateProfile(c *gin.Context) {
	userID, _, ok := RequireUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, req.DisplayName)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	respondData(c, http.StatusOK, marshalUser(user))
}

func (h *httpHandler) changePassword(c *gin.Context) {
	userID, _, ok := RequireUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	err := h.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			respondError(c, http.StatusBadRequest, "current password is incorrect")
		case errors.Is(err, ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not found")
		default:
			respondError(c, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "password changed"})
}

func marshalAuthPayload(result AuthResult) authPayload {
	payload := authPayload{User: marshalUser(result.User)}
	payload.Tokens.AccessToken = result.Tokens.AccessToken
	payload.Tokens.RefreshToken = result.Tokens.RefreshToken
	payload.Tokens.AccessTokenExpiry = result.Tokens.AccessTokenExpiry.Unix()
	payload.Tokens.RefreshTokenExpiry = result.Tokens.RefreshTokenExpiry.Unix()
	return payload
}

func marshalUser(user User) userPayload {
	payload := userPayload{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsAdmin:     user.IsAdmin,
	}
	if !user.CreatedAt.IsZero() {
		created := user.CreatedAt.UTC()
		payload.CreatedAt = &created
	}
	return payload
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}
