package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flameberry/PrimePatrol/services"
	"github.com/flameberry/PrimePatrol/utils"
)

// WorkerController exposes the worker registry.
type WorkerController struct {
	workers *services.WorkerService
}

func NewWorkerController(workers *services.WorkerService) *WorkerController {
	return &WorkerController{workers: workers}
}

type createWorkerRequest struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employeeId"`
	Status     string `json:"status"`
}

type workerStatusRequest struct {
	Status string `json:"status"`
}

type assignedPostsRequest struct {
	AssignedPosts []string `json:"assignedPosts"`
	Status        string   `json:"status"`
}

type appendActivityRequest struct {
	ActivityID string `json:"activityId"`
}

type removeAssignmentRequest struct {
	PostID string `json:"postId"`
}

// Create
// @Summary Register a worker
// @Tags workers
// @Accept json
// @Produce json
// @Param request body createWorkerRequest true "worker"
// @Success 201 {object} models.Worker
// @Failure 400 {object} utils.JSONResponse
// @Failure 409 {object} utils.JSONResponse
// @Router /workers [post]
func (w *WorkerController) Create(ctx *gin.Context) {
	var req createWorkerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 40, "invalid request payload")
		return
	}
	worker, err := w.workers.Create(ctx.Request.Context(), services.CreateWorkerInput{
		Name:       req.Name,
		EmployeeID: req.EmployeeID,
		Status:     req.Status,
	})
	if err != nil {
		respondError(ctx, err, 41, "failed to create worker")
		return
	}
	utils.Success(ctx, http.StatusCreated, worker)
}

// FindAll lists workers, or only the requested ones when ?ids is given.
// @Summary List workers
// @Tags workers
// @Produce json
// @Param ids query string false "comma separated worker ids"
// @Success 200 {array} models.Worker
// @Router /workers [get]
func (w *WorkerController) FindAll(ctx *gin.Context) {
	if _, ok := ctx.GetQuery("ids"); ok {
		w.FindByIDs(ctx)
		return
	}
	workers, err := w.workers.FindAll(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 42, "failed to list workers")
		return
	}
	utils.Success(ctx, http.StatusOK, workers)
}

// FindByIDs resolves every id or fails with 404.
// @Summary Bulk worker lookup
// @Tags workers
// @Produce json
// @Param ids query string true "comma separated worker ids"
// @Success 200 {array} models.Worker
// @Failure 400 {object} utils.JSONResponse
// @Failure 404 {object} utils.JSONResponse
// @Router /workers/findByIds [get]
func (w *WorkerController) FindByIDs(ctx *gin.Context) {
	workers, err := w.workers.FindByIDs(ctx.Request.Context(), splitIDs(ctx.QueryArray("ids")))
	if err != nil {
		respondError(ctx, err, 43, "failed to find workers")
		return
	}
	utils.Success(ctx, http.StatusOK, workers)
}

// FindOne
// @Summary Get a worker
// @Tags workers
// @Produce json
// @Param id path string true "worker id"
// @Success 200 {object} models.Worker
// @Failure 404 {object} utils.JSONResponse
// @Router /workers/{id} [get]
func (w *WorkerController) FindOne(ctx *gin.Context) {
	worker, err := w.workers.FindOne(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 44, "failed to load worker")
		return
	}
	utils.Success(ctx, http.StatusOK, worker)
}

// UpdateStatus
// @Summary Change a worker's status
// @Tags workers
// @Accept json
// @Produce json
// @Param id path string true "worker id"
// @Param request body workerStatusRequest true "ACTIVE, INACTIVE, ON_LEAVE or BUSY"
// @Success 200 {object} models.Worker
// @Failure 400 {object} utils.JSONResponse
// @Router /workers/{id}/status [patch]
func (w *WorkerController) UpdateStatus(ctx *gin.Context) {
	var req workerStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 40, "invalid request payload")
		return
	}
	worker, err := w.workers.UpdateStatus(ctx.Request.Context(), ctx.Param("id"), req.Status)
	if err != nil {
		respondError(ctx, err, 45, "failed to update status")
		return
	}
	utils.Success(ctx, http.StatusOK, worker)
}

// UpdateAssignedPosts
// @Summary Replace a worker's assigned posts
// @Tags workers
// @Accept json
// @Produce json
// @Param id path string true "worker id"
// @Param request body assignedPostsRequest true "post ids"
// @Success 200 {object} models.Worker
// @Router /workers/{id}/assigned-posts [patch]
func (w *WorkerController) UpdateAssignedPosts(ctx *gin.Context) {
	var req assignedPostsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 40, "invalid request payload")
		return
	}
	worker, err := w.workers.UpdateAssignedPosts(ctx.Request.Context(), ctx.Param("id"), req.AssignedPosts)
	if err != nil {
		respondError(ctx, err, 46, "failed to update assigned posts")
		return
	}
	utils.Success(ctx, http.StatusOK, worker)
}

// UpdateAssignment
// @Summary Replace assigned posts and status together
// @Tags workers
// @Accept json
// @Produce json
// @Param id path string true "worker id"
// @Param request body assignedPostsRequest true "post ids and status"
// @Success 200 {object} models.Worker
// @Router /workers/{id}/assign-post [patch]
func (w *WorkerController) UpdateAssignment(ctx *gin.Context) {
	var req assignedPostsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 40, "invalid request payload")
		return
	}
	worker, err := w.workers.UpdateAssignment(ctx.Request.Context(), ctx.Param("id"), req.AssignedPosts, req.Status)
	if err != nil {
		respondError(ctx, err, 47, "failed to update assignment")
		return
	}
	utils.Success(ctx, http.StatusOK, worker)
}

// AppendActivity
// @Summary Record an activity id on a worker
// @Tags workers
// @Accept json
// @Produce json
// @Param id path string true "worker id"
// @Param request body appendActivityRequest true "activity id"
// @Success 200 {object} models.Worker
// @Router /workers/{id}/activities [post]
func (w *WorkerController) AppendActivity(ctx *gin.Context) {
	var req appendActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 40, "invalid request payload")
		return
	}
	worker, err := w.workers.AppendActivity(ctx.Request.Context(), ctx.Param("id"), req.ActivityID)
	if err != nil {
		respondError(ctx, err, 48, "failed to append activity")
		return
	}
	utils.Success(ctx, http.StatusOK, worker)
}

// RemovePostAssignment
// @Summary Drop a post from every worker
// @Tags workers
// @Accept json
// @Produce json
// @Param request body removeAssignmentRequest true "post id"
// @Success 200 {object} utils.JSONResponse
// @Router /workers/remove-post-assignment [post]
func (w *WorkerController) RemovePostAssignment(ctx *gin.Context) {
	var req removeAssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, 40, "invalid request payload")
		return
	}
	updated, err := w.workers.RemovePostAssignment(ctx.Request.Context(), req.PostID)
	if err != nil {
		respondError(ctx, err, 49, "failed to remove post assignment")
		return
	}
	utils.Success(ctx, http.StatusOK, gin.H{"message": "post assignment removed", "updated": updated})
}

// Remove
// @Summary Delete a worker
// @Tags workers
// @Produce json
// @Param id path string true "worker id"
// @Success 200 {object} utils.JSONResponse
// @Router /workers/{id} [delete]
func (w *WorkerController) Remove(ctx *gin.Context) {
	if err := w.workers.Remove(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err, 50, "failed to delete worker")
		return
	}
	utils.Message(ctx, "worker deleted", nil)
}

// splitIDs accepts both ?ids=a,b and ?ids=a&ids=b.
func splitIDs(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
