package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type createTaskRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
	UserID  string `json:"userId" binding:"required"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), claimsFrom(c).UserID, req.UserID, req.Content)
	if err != nil {
		_ = c.Error(err)
		return
	}

	s.logger.Debug(c.Request.Context(), "created task", "task_id", task.ID)
	c.JSON(http.StatusOK, gin.H{"message": services.MsgTaskAdded, "task": task})
}

type listTasksQuery struct {
	UserID string `form:"userId" binding:"required"`
}

func (s *Server) handleListTasks(c *gin.Context) {
	var q listTasksQuery
	if !bind(c, &q, binding.Query) {
		return
	}

	list, err := s.tasks.List(c.Request.Context(), claimsFrom(c).UserID, q.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": list})
}
