package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flameberry/PrimePatrol/services"
	"github.com/flameberry/PrimePatrol/utils"
)

// UserController exposes citizen accounts.
type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

type createUserRequest struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	FirebaseID *string  `json:"firebaseId"`
	IsActive   *bool    `json:"isActive"`
	FCMToken   string   `json:"fcmToken"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

type updateUserRequest struct {
	Name       *string  `json:"name"`
	Email      *string  `json:"email"`
	FirebaseID *string  `json:"firebaseId"`
	IsActive   *bool    `json:"isActive"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

type fcmTokenRequest struct {
	FCMToken string `json:"fcmToken"`
}

type userPostRequest struct {
	PostID string `json:"postId"`
}

// Create
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body createUserRequest true "user"
// @Success 201 {object} models.User
// @Failure 400 {object} utils.JSONResponse
// @Failure 409 {object} utils.JSONResponse
// @Router /users [post]
func (u *UserController) Create(ctx *gin.Context) {
	var req createUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 60, "invalid request payload")
		return
	}
	user, err := u.users.Create(ctx.Request.Context(), services.CreateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		FirebaseID: req.FirebaseID,
		IsActive:   req.IsActive,
		FCMToken:   req.FCMToken,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
	})
	if err != nil {
		respondError(ctx, err, 61, "failed to create user")
		return
	}
	utils.Success(ctx, http.StatusCreated, user)
}

// FindAll
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Router /users [get]
func (u *UserController) FindAll(ctx *gin.Context) {
	users, err := u.users.FindAll(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 62, "failed to list users")
		return
	}
	utils.Success(ctx, http.StatusOK, users)
}

// FindOne
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} models.User
// @Failure 404 {object} utils.JSONResponse
// @Router /users/{id} [get]
func (u *UserController) FindOne(ctx *gin.Context) {
	user, err := u.users.FindOne(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 63, "failed to load user")
		return
	}
	utils.Success(ctx, http.StatusOK, user)
}

// FindByFirebaseID
// @Summary Get a user by firebase id
// @Tags users
// @Produce json
// @Param firebaseId path string true "firebase id"
// @Success 200 {object} models.User
// @Failure 404 {object} utils.JSONResponse
// @Router /users/firebase/{firebaseId} [get]
func (u *UserController) FindByFirebaseID(ctx *gin.Context) {
	user, err := u.users.FindByFirebaseID(ctx.Request.Context(), ctx.Param("firebaseId"))
	if err != nil {
		respondError(ctx, err, 64, "failed to load user")
		return
	}
	utils.Success(ctx, http.StatusOK, user)
}

// Update
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "user id"
// @Param request body updateUserRequest true "fields to change"
// @Success 200 {object} models.User
// @Failure 409 {object} utils.JSONResponse
// @Router /users/{id} [put]
func (u *UserController) Update(ctx *gin.Context) {
	var req updateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 60, "invalid request payload")
		return
	}
	user, err := u.users.Update(ctx.Request.Context(), ctx.Param("id"), services.UpdateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		FirebaseID: req.FirebaseID,
		IsActive:   req.IsActive,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
	})
	if err != nil {
		respondError(ctx, err, 65, "failed to update user")
		return
	}
	utils.Success(ctx, http.StatusOK, user)
}

// UpdateFCMToken
// @Summary Store a push notification token
// @Tags users
// @Accept json
// @Produce json
// @Param firebaseId path string true "firebase id"
// @Param request body fcmTokenRequest true "token"
// @Success 200 {object} utils.JSONResponse
// @Router /users/update-fcm/{firebaseId} [put]
func (u *UserController) UpdateFCMToken(ctx *gin.Context) {
	var req fcmTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 60, "invalid request payload")
		return
	}
	if err := u.users.UpdateFCMToken(ctx.Request.Context(), ctx.Param("firebaseId"), req.FCMToken); err != nil {
		respondError(ctx, err, 66, "failed to update fcm token")
		return
	}
	utils.Message(ctx, "FCM token updated successfully", nil)
}

// AddPost
// @Summary Record an authored post on a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "user id"
// @Param request body userPostRequest true "post id"
// @Success 200 {object} models.User
// @Router /users/{id}/posts [post]
func (u *UserController) AddPost(ctx *gin.Context) {
	var req userPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 60, "invalid request payload")
		return
	}
	user, err := u.users.AddPost(ctx.Request.Context(), ctx.Param("id"), req.PostID)
	if err != nil {
		respondError(ctx, err, 67, "failed to add post")
		return
	}
	utils.Success(ctx, http.StatusOK, user)
}

// RemovePost
// @Summary Drop an authored post from a user
// @Tags users
// @Produce json
// @Param id path string true "user id"
// @Param postId path string true "post id"
// @Success 200 {object} models.User
// @Router /users/{id}/posts/{postId} [delete]
func (u *UserController) RemovePost(ctx *gin.Context) {
	user, err := u.users.RemovePost(ctx.Request.Context(), ctx.Param("id"), ctx.Param("postId"))
	if err != nil {
		respondError(ctx, err, 68, "failed to remove post")
		return
	}
	utils.Success(ctx, http.StatusOK, user)
}

// Remove
// @Summary Delete a user
// @Tags users
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} utils.JSONResponse
// @Router /users/{id} [delete]
func (u *UserController) Remove(ctx *gin.Context) {
	if err := u.users.Remove(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err, 69, "failed to delete user")
		return
	}
	utils.Message(ctx, "user deleted", nil)
}
