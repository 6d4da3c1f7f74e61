package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"lattice/internal/action"
	"lattice/internal/graph"
	"lattice/internal/output"
	"lattice/internal/storage"
	"lattice/internal/task"
	"lattice/internal/timelog"
)

type createTaskRequest struct {
	Title    string `json:"title"`
	Priority string `json:"priority"`
}

type dependencyRequest struct {
	DependsOn string `json:"depends_on"`
}

type actionRequest struct {
	Kind      action.Kind   `json:"kind"`
	Force     bool          `json:"force"`
	Cascade   bool          `json:"cascade"`
	Priority  task.Priority `json:"priority"`
	ProjectID string        `json:"project_id"`
	DependsOn string        `json:"depends_on"`
}

type confirmationRequest struct {
	Confirmation action.ConfirmationRequest `json:"confirmation"`
	Decision     action.Decision            `json:"decision"`
}

// handleListTasks returns every task with its resolved status.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.store.FetchAll()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	g := graph.New(tasks)
	c.JSON(http.StatusOK, gin.H{"tasks": taskViews(output.Rows(tasks, g))})
}

// handleCreateTask inserts a new top-level task.
func (s *Server) handleCreateTask(c *gin.Context) {
	s.createTask(c, "")
}

// handleCreateSubtask inserts a new subtask under the path task.
func (s *Server) handleCreateSubtask(c *gin.Context) {
	s.createTask(c, c.Param("id"))
}

func (s *Server) createTask(c *gin.Context, parentID string) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Title == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("title is required"))
		return
	}
	priority := task.Priority(req.Priority)
	if req.Priority == "" {
		priority = task.PriorityMedium
	}
	if !task.IsValidPriority(priority) {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid priority: %s", req.Priority))
		return
	}

	tasks, err := s.store.FetchAll()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	g := graph.New(tasks)

	t, err := s.router.Executor().CreateTask(req.Title, priority, parentID, g)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": taskView(t, g)})
}

// handleShowTask returns one task with status and timer state.
func (s *Server) handleShowTask(c *gin.Context) {
	tasks, err := s.store.FetchAll()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	g := graph.New(tasks)
	t := g.Get(c.Param("id"))
	if t == nil {
		s.respondError(c, http.StatusNotFound, storage.TaskNotFoundError{ID: c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": taskView(t, g)})
}

// handleAvailability returns the per-surface action lists for a task.
func (s *Server) handleAvailability(c *gin.Context) {
	tasks, err := s.store.FetchAll()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	g := graph.New(tasks)
	t := g.Get(c.Param("id"))
	if t == nil {
		s.respondError(c, http.StatusNotFound, storage.TaskNotFoundError{ID: c.Param("id")})
		return
	}

	records, err := s.store.Records()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	surfaces := action.Available(action.Context{
		IsCompleted:     t.IsCompleted(),
		IsSubtask:       t.IsSubtask(),
		HasActiveTimer:  timelog.FindOpen(records, t.ID) != nil,
		InProjectDetail: c.Query("project") != "",
	})
	c.JSON(http.StatusOK, gin.H{
		"primary":        surfaces.Primary,
		"secondary":      surfaces.Secondary,
		"quick_actions":  surfaces.QuickActions,
		"edit_shortcuts": surfaces.EditShortcuts,
	})
}

// handleAddDependency validates and adds a dependency edge.
func (s *Server) handleAddDependency(c *gin.Context) {
	var req dependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	out := s.router.Invoke(action.Action{
		Kind:      action.KindAddDependency,
		TaskID:    c.Param("id"),
		DependsOn: req.DependsOn,
	})
	s.respondOutcome(c, out)
}

// handleRemoveDependency removes a dependency edge.
func (s *Server) handleRemoveDependency(c *gin.Context) {
	out := s.router.Invoke(action.Action{
		Kind:      action.KindRemoveDependency,
		TaskID:    c.Param("id"),
		DependsOn: c.Param("dep"),
	})
	s.respondOutcome(c, out)
}

// handleAction routes one action through the confirmation state machine.
func (s *Server) handleAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	out := s.router.Invoke(action.Action{
		Kind:      req.Kind,
		TaskID:    c.Param("id"),
		Force:     req.Force,
		Cascade:   req.Cascade,
		Priority:  req.Priority,
		ProjectID: req.ProjectID,
		DependsOn: req.DependsOn,
	})
	s.respondOutcome(c, out)
}

// handleConfirmation resolves a previously returned confirmation request.
func (s *Server) handleConfirmation(c *gin.Context) {
	var req confirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	out := s.router.Resolve(req.Confirmation, req.Decision)
	s.respondOutcome(c, out)
}

// respondOutcome maps a routing outcome onto HTTP. Pending confirmations
// are 409s carrying the request to re-post.
func (s *Server) respondOutcome(c *gin.Context, out action.Outcome) {
	switch out.State {
	case action.StateApplied:
		body := gin.H{"state": out.State, "effect": out.Effect}
		if out.Created != nil {
			body["created"] = out.Created
		}
		if out.FollowUp != nil {
			body["follow_up"] = out.FollowUp
		}
		if out.Navigate != "" {
			body["navigate"] = out.Navigate
		}
		c.JSON(http.StatusOK, body)
	case action.StateAwaitingConfirmation:
		c.JSON(http.StatusConflict, gin.H{
			"state":        out.State,
			"confirmation": out.Confirmation,
		})
	case action.StateCancelled:
		c.JSON(http.StatusOK, gin.H{"state": out.State})
	default:
		if out.Alert != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"state": out.State,
				"alert": out.Alert,
			})
			return
		}
		s.respondError(c, statusFor(out.Err), out.Err)
	}
}

func statusFor(err error) int {
	var notFound storage.TaskNotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}
	switch err.(type) {
	case graph.SelfDependencyError, graph.AncestorDependencyError,
		graph.DescendantDependencyError, graph.DuplicateDependencyError,
		graph.CycleError:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type taskViewJSON struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Status    task.Status  `json:"status"`
	Priority  task.Priority `json:"priority"`
	Parent    string       `json:"parent,omitempty"`
	Subtasks  []string     `json:"subtasks,omitempty"`
	DependsOn []string     `json:"depends_on,omitempty"`
	Project   string       `json:"project,omitempty"`
}

func taskView(t *task.Task, g *graph.Graph) taskViewJSON {
	return taskViewJSON{
		ID:        t.ID,
		Title:     t.Title,
		Status:    task.ComputeStatus(t, g.IsBlocked(t.ID)),
		Priority:  t.Priority,
		Parent:    t.ParentID,
		Subtasks:  t.SubtaskIDs,
		DependsOn: t.DependsOn,
		Project:   t.ProjectID,
	}
}

func taskViews(rows []output.Row) []taskViewJSON {
	views := make([]taskViewJSON, len(rows))
	for i, r := range rows {
		views[i] = taskViewJSON{
			ID:        r.Task.ID,
			Title:     r.Task.Title,
			Status:    r.Status,
			Priority:  r.Task.Priority,
			Parent:    r.Task.ParentID,
			Subtasks:  r.Task.SubtaskIDs,
			DependsOn: r.Task.DependsOn,
			Project:   r.Task.ProjectID,
		}
	}
	return views
}
