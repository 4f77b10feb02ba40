package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flameberry/PrimePatrol/middleware"
	"github.com/flameberry/PrimePatrol/services"
	"github.com/flameberry/PrimePatrol/utils"
)

// AuthController issues access tokens on the user service.
type AuthController struct {
	users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IssueToken exchanges credentials for a bearer token.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body tokenRequest true "credentials"
// @Success 200 {object} services.IssuedToken
// @Failure 400 {object} utils.JSONResponse
// @Failure 401 {object} utils.JSONResponse
// @Router /auth/token [post]
func (a *AuthController) IssueToken(ctx *gin.Context) {
	var req tokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 10, "invalid request payload")
		return
	}
	token, err := a.users.IssueToken(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err, 11, "failed to issue token")
		return
	}
	utils.Success(ctx, http.StatusOK, token)
}

// LogoutController revokes gateway tokens.
type LogoutController struct {
	secret    []byte
	blacklist *utils.TokenBlacklist
}

func NewLogoutController(secret string, blacklist *utils.TokenBlacklist) *LogoutController {
	return &LogoutController{secret: []byte(secret), blacklist: blacklist}
}

// Logout invalidates the token by blacklisting it until expiration.
func (l *LogoutController) Logout(ctx *gin.Context) {
	token, err := middleware.BearerToken(ctx.Request)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40107, err.Error())
		return
	}
	claims, err := utils.ParseToken(l.secret, token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(72 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := l.blacklist.Revoke(ctx.Request.Context(), token, expiresAt); err != nil {
		respondError(ctx, err, 12, "failed to revoke token")
		return
	}
	ctx.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	utils.Message(ctx, "logged out", nil)
}
