// Package controller exposes the gateway's HTTP surface for the judge flow.
package controller

import (
	"encoding/json"
	"net/http"

	"codearena/internal/gateway/middleware"
	"codearena/internal/gateway/service"
	"codearena/internal/judge/model"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// JudgeController handles /execute and /evaluate.
type JudgeController struct {
	judge *service.JudgeService
}

// NewJudgeController creates the controller.
func NewJudgeController(judge *service.JudgeService) *JudgeController {
	return &JudgeController{judge: judge}
}

// RegisterRoutes mounts the judge endpoints. The health line stays public;
// everything else sits behind auth.
func (ctl *JudgeController) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	r.GET("/", ctl.Health)

	guarded := r.Group("/", auth)
	guarded.POST("/execute", ctl.Execute)
	guarded.POST("/evaluate", ctl.Evaluate)
}

// Health answers the root probe.
func (ctl *JudgeController) Health(c *gin.Context) {
	response.Success(c, gin.H{"message": "code judge gateway is running"})
}

// Execute runs code once and relays the worker's result verbatim.
func (ctl *JudgeController) Execute(c *gin.Context) {
	var req model.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := ctl.judge.Execute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", result)
}

// Evaluate scores a contest submission. The user identity comes from the
// auth middleware, never from the request body.
func (ctl *JudgeController) Evaluate(c *gin.Context) {
	var in service.EvaluateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		if !c.GetBool(middleware.CtxInternal) {
			response.Unauthorized(c, "")
			return
		}
		userID = in.UserID
	}
	if userID == "" {
		response.BadRequest(c, "user_id is required")
		return
	}

	result, err := ctl.judge.Evaluate(c.Request.Context(), userID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": json.RawMessage(result)})
}
