package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flameberry/PrimePatrol/services"
	"github.com/flameberry/PrimePatrol/utils"
)

// PostController exposes reports, worker assignment and the activity ledger.
type PostController struct {
	posts         *services.PostService
	maxImageBytes int64
}

// NewPostController creates a PostController. maxImageMB <= 0 disables the size check.
func NewPostController(posts *services.PostService, maxImageMB int) *PostController {
	return &PostController{posts: posts, maxImageBytes: int64(maxImageMB) << 20}
}

type createPostRequest struct {
	UserID    string   `form:"userId" json:"userId"`
	Title     string   `form:"title" json:"title"`
	Content   string   `form:"content" json:"content"`
	Latitude  *float64 `form:"latitude" json:"latitude"`
	Longitude *float64 `form:"longitude" json:"longitude"`
}

type updatePostRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Status  *string `json:"status"`
}

type assignWorkersRequest struct {
	WorkerIDs []string `json:"workerIds"`
}

type logActivityRequest struct {
	WorkerID    string `json:"workerId"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// CreatePost stores a new report.
// @Summary Create a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param userId formData string true "author id"
// @Param title formData string true "title"
// @Param content formData string true "content"
// @Param latitude formData number false "latitude"
// @Param longitude formData number false "longitude"
// @Param image formData file false "photo of the issue"
// @Success 201 {object} models.Post
// @Failure 400 {object} utils.JSONResponse
// @Router /posts [post]
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req createPostRequest
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, 20, "invalid request payload")
		return
	}

	var image *services.ImageUpload
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		header, err := ctx.FormFile("image")
		switch {
		case err == nil:
			if p.maxImageBytes > 0 && header.Size > p.maxImageBytes {
				badRequest(ctx, 21, fmt.Sprintf("image exceeds %d MB", p.maxImageBytes>>20))
				return
			}
			file, err := header.Open()
			if err != nil {
				badRequest(ctx, 22, "failed to read image")
				return
			}
			defer file.Close()
			image = &services.ImageUpload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			badRequest(ctx, 22, "failed to read image")
			return
		}
	}

	post, err := p.posts.CreatePost(ctx.Request.Context(), services.CreatePostInput{
		UserID:    req.UserID,
		Title:     req.Title,
		Content:   req.Content,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}, image)
	if err != nil {
		respondError(ctx, err, 23, "failed to create post")
		return
	}
	utils.Success(ctx, http.StatusCreated, post)
}

// ListPosts returns every post, newest first.
// @Summary List posts
// @Tags posts
// @Produce json
// @Success 200 {array} services.PostDetail
// @Router /posts [get]
func (p *PostController) ListPosts(ctx *gin.Context) {
	posts, err := p.posts.ListPosts(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 24, "failed to list posts")
		return
	}
	utils.Success(ctx, http.StatusOK, posts)
}

// GetPostStats
// @Summary Post counters
// @Tags posts
// @Produce json
// @Success 200 {object} services.PostStats
// @Router /posts/stats [get]
func (p *PostController) GetPostStats(ctx *gin.Context) {
	stats, err := p.posts.GetPostStats(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 25, "failed to load stats")
		return
	}
	utils.Success(ctx, http.StatusOK, stats)
}

// GetPost
// @Summary Get a post with its workers and activities
// @Tags posts
// @Produce json
// @Param id path string true "post id"
// @Success 200 {object} services.PostDetail
// @Failure 400 {object} utils.JSONResponse
// @Failure 404 {object} utils.JSONResponse
// @Router /posts/{id} [get]
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.posts.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 26, "failed to load post")
		return
	}
	utils.Success(ctx, http.StatusOK, post)
}

// UpdatePost
// @Summary Update title, content or status
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "post id"
// @Param request body updatePostRequest true "fields to change"
// @Success 200 {object} models.Post
// @Failure 400 {object} utils.JSONResponse
// @Failure 404 {object} utils.JSONResponse
// @Router /posts/{id} [put]
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req updatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 20, "invalid request payload")
		return
	}
	post, err := p.posts.UpdatePost(ctx.Request.Context(), ctx.Param("id"), services.UpdatePostInput{
		Title:   req.Title,
		Content: req.Content,
		Status:  req.Status,
	})
	if err != nil {
		respondError(ctx, err, 27, "failed to update post")
		return
	}
	utils.Success(ctx, http.StatusOK, post)
}

// DeletePost removes a post and its activity records.
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Param id path string true "post id"
// @Success 200 {object} utils.JSONResponse
// @Failure 404 {object} utils.JSONResponse
// @Router /posts/{id} [delete]
func (p *PostController) DeletePost(ctx *gin.Context) {
	if err := p.posts.RemovePost(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err, 28, "failed to delete post")
		return
	}
	utils.Message(ctx, "post deleted", nil)
}

// AssignWorkers
// @Summary Assign workers to a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "post id"
// @Param request body assignWorkersRequest true "worker ids"
// @Success 200 {object} models.Post
// @Failure 400 {object} utils.JSONResponse
// @Failure 404 {object} utils.JSONResponse
// @Failure 503 {object} utils.JSONResponse
// @Router /posts/{id}/workers [post]
func (p *PostController) AssignWorkers(ctx *gin.Context) {
	var req assignWorkersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 20, "invalid request payload")
		return
	}
	post, err := p.posts.AssignWorkers(ctx.Request.Context(), ctx.Param("id"), req.WorkerIDs)
	if err != nil {
		respondError(ctx, err, 29, "failed to assign workers")
		return
	}
	utils.Success(ctx, http.StatusOK, post)
}

// LogWorkerActivity
// @Summary Record a worker action on a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "post id"
// @Param request body logActivityRequest true "activity"
// @Success 201 {object} services.WorkerDetail
// @Failure 400 {object} utils.JSONResponse
// @Failure 404 {object} utils.JSONResponse
// @Router /posts/{id}/activities [post]
func (p *PostController) LogWorkerActivity(ctx *gin.Context) {
	var req logActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 20, "invalid request payload")
		return
	}
	worker, err := p.posts.LogWorkerActivity(ctx.Request.Context(), ctx.Param("id"), services.ActivityInput{
		WorkerID:    req.WorkerID,
		Action:      req.Action,
		Description: req.Description,
	})
	if err != nil {
		respondError(ctx, err, 30, "failed to log activity")
		return
	}
	utils.Success(ctx, http.StatusCreated, worker)
}

// GetWorkerActivities
// @Summary List a post's activities, newest first
// @Tags posts
// @Produce json
// @Param id path string true "post id"
// @Success 200 {array} models.WorkerActivity
// @Failure 400 {object} utils.JSONResponse
// @Failure 404 {object} utils.JSONResponse
// @Router /posts/{id}/activities [get]
func (p *PostController) GetWorkerActivities(ctx *gin.Context) {
	activities, err := p.posts.GetWorkerActivities(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 31, "failed to list activities")
		return
	}
	utils.Success(ctx, http.StatusOK, activities)
}
