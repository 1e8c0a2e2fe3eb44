package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/middleware"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/notify"
	"github.com/rgayle/waterwatch/internal/repository"
	"github.com/rgayle/waterwatch/internal/scope"
)

type TaskHandler struct {
	tasks    repository.TaskRepository
	users    repository.UserRepository
	supplies repository.SupplyRepository
	hub      *notify.Hub
	logger   *zap.Logger
}

func NewTaskHandler(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	supplies repository.SupplyRepository,
	hub *notify.Hub,
	logger *zap.Logger,
) *TaskHandler {
	return &TaskHandler{tasks: tasks, users: users, supplies: supplies, hub: hub, logger: logger}
}

type createTaskRequest struct {
	Title      string              `json:"title" binding:"required"`
	SupplyID   uuid.UUID           `json:"supply_id" binding:"required"`
	AssignedTo uuid.UUID           `json:"assigned_to" binding:"required"`
	Priority   models.TaskPriority `json:"priority"`
	DueDate    *string             `json:"due_date"` // "2006-01-02"
}

// Create handles POST /api/v1/tasks (admin only, enforced by routing).
// The assignee's parish room hears about it immediately.
func (h *TaskHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "priority must be low, normal or high"})
		return
	}

	var due *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "due_date must be YYYY-MM-DD"})
			return
		}
		due = &parsed
	}

	supply, err := h.supplies.GetByID(c.Request.Context(), sc, req.SupplyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if supply == nil {
		notFound(c, "supply")
		return
	}

	assignee, err := h.users.GetByID(c.Request.Context(), req.AssignedTo)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if assignee == nil {
		notFound(c, "assignee")
		return
	}

	task := &models.Task{
		ID:         uuid.New(),
		Title:      req.Title,
		SupplyID:   supply.ID,
		AssignedTo: assignee.ID,
		CreatedBy:  sc.UserID,
		Priority:   priority,
		DueDate:    due,
		Status:     models.TaskPending,
	}
	detail, err := h.tasks.Create(c.Request.Context(), task)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.hub.Broadcast(c.Request.Context(), notify.EventNewTask, detail,
		scope.RoomAdmin, assignee.Parish)
	c.JSON(http.StatusCreated, detail)
}

// List handles GET /api/v1/tasks: an inspector's own assignments, or the
// whole board for admins.
func (h *TaskHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)

	var (
		tasks []models.TaskDetail
		err   error
	)
	if sc.IsAdmin() {
		tasks, err = h.tasks.ListAll(c.Request.Context())
	} else {
		tasks, err = h.tasks.ListByAssignee(c.Request.Context(), sc.UserID)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// Accept, Reject, Start and Complete each advance a task one legal step.
// The (assignee, current status) guard lives in the repository so two
// racing transitions cannot both apply.

func (h *TaskHandler) Accept(c *gin.Context) {
	h.transition(c, models.TaskPending, models.TaskAccepted)
}

func (h *TaskHandler) Reject(c *gin.Context) {
	h.transition(c, models.TaskPending, models.TaskRejected)
}

func (h *TaskHandler) Start(c *gin.Context) {
	h.transition(c, models.TaskAccepted, models.TaskInProgress)
}

func (h *TaskHandler) Complete(c *gin.Context) {
	h.transition(c, models.TaskInProgress, models.TaskCompleted)
}

func (h *TaskHandler) transition(c *gin.Context, from, to models.TaskStatus) {
	sc := middleware.GetScope(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		notFound(c, "task")
		return
	}

	detail, err := h.tasks.Transition(c.Request.Context(), id, sc.UserID, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("task transitioned",
		zap.String("task_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	c.JSON(http.StatusOK, detail)
}
