// Package controller exposes the plagiarism check HTTP surface.
package controller

import (
	"codearena/internal/check/model"
	"codearena/internal/check/service"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// CheckController handles /semantic-code.
type CheckController struct {
	engine *service.Engine
}

// NewCheckController creates the controller.
func NewCheckController(engine *service.Engine) *CheckController {
	return &CheckController{engine: engine}
}

// RegisterRoutes mounts the check endpoints.
func (ctl *CheckController) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	r.GET("/", ctl.Health)
	r.POST("/semantic-code", auth, ctl.SemanticCode)
}

// Health answers the root probe.
func (ctl *CheckController) Health(c *gin.Context) {
	response.Success(c, gin.H{"message": "semantic check service is running"})
}

// SemanticCode runs the plagiarism check over a batch of user submissions.
func (ctl *CheckController) SemanticCode(c *gin.Context) {
	var batch []model.UserData
	if err := c.ShouldBindJSON(&batch); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := ctl.engine.Check(c.Request.Context(), batch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
