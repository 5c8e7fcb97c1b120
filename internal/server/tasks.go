package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tracker/internal/models"
	"tracker/internal/service"
)

// taskRequest accepts both projectId and project_id.
type taskRequest struct {
	Name         *string `json:"name"`
	Status       *string `json:"status"`
	Weight       *int    `json:"weight"`
	ProjectID    *string `json:"projectId"`
	ProjectIDAlt *string `json:"project_id"`
}

func (r taskRequest) projectID() *string {
	if r.ProjectID != nil {
		return r.ProjectID
	}
	return r.ProjectIDAlt
}

// newTask fills creation defaults: status draft and weight 1.
func (r taskRequest) newTask(projectID string) service.NewTask {
	in := service.NewTask{
		ProjectID: strings.TrimSpace(projectID),
		Name:      getString(r.Name),
		Status:    models.StatusDraft,
		Weight:    1,
	}
	if r.Status != nil {
		in.Status = models.Status(*r.Status)
	}
	if r.Weight != nil {
		in.Weight = *r.Weight
	}
	return in
}

func (r taskRequest) changes() service.TaskChanges {
	var ch service.TaskChanges
	ch.Name = r.Name
	ch.Weight = r.Weight
	if r.Status != nil {
		status := models.Status(*r.Status)
		ch.Status = &status
	}
	if id := r.projectID(); id != nil {
		trimmed := strings.TrimSpace(*id)
		ch.ProjectID = &trimmed
	}
	return ch
}

// handleListProjectTasks fetches tasks for a project in the path.
func (s *Server) handleListProjectTasks(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.listTasks(c, projectID)
}

// handleListTasks fetches tasks for the project_id query parameter, or every
// task of the caller's projects when no project is given.
func (s *Server) handleListTasks(c *gin.Context) {
	projectID := strings.TrimSpace(c.Query("project_id"))
	if projectID == "" {
		projectID = strings.TrimSpace(c.Query("projectId"))
	}
	if projectID != "" {
		s.listTasks(c, projectID)
		return
	}

	tasks, err := s.svc.ListOwnerTasks(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) listTasks(c *gin.Context, projectID string) {
	tasks, err := s.svc.ListTasks(c.Request.Context(), currentUser(c).ID, projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateProjectTask inserts a task into the project in the path.
func (s *Server) handleCreateProjectTask(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	s.createTask(c, req.newTask(projectID))
}

// handleCreateTask inserts a task into the project named in the body.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	s.createTask(c, req.newTask(getString(req.projectID())))
}

func (s *Server) createTask(c *gin.Context, in service.NewTask) {
	task, project, err := s.svc.CreateTask(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task, "project": project})
}

// handleGetTask returns a single task.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := s.svc.GetTask(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask updates task fields and may move it to another project.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	task, projects, err := s.svc.UpdateTask(c.Request.Context(), currentUser(c).ID, id, req.changes())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task, "projects": projects})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := s.svc.DeleteTask(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	payload := gin.H{"status": "deleted"}
	if project.ID != "" {
		payload["project"] = project
	}
	respondSuccess(c, http.StatusOK, payload)
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
