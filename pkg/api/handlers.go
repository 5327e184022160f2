package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/repoai/pkg/models"
	"github.com/codeready-toolchain/repoai/pkg/session"
)

// CreateRefactorRequest is the body of POST /api/refactor.
type CreateRefactorRequest struct {
	UserID     string      `json:"user_id"`
	UserPrompt string      `json:"user_prompt" binding:"required"`
	RepoURL    string      `json:"repo_url,omitempty"`
	Mode       models.Mode `json:"mode,omitempty"`
	MaxRetries *int        `json:"max_retries,omitempty"`
}

// CreateRefactorResponse tells the client where to follow the session.
type CreateRefactorResponse struct {
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
	StatusURL    string `json:"status_url"`
	SSEURL       string `json:"sse_url"`
	WebsocketURL string `json:"websocket_url,omitempty"`
}

func (s *Server) createRefactor(c *gin.Context) {
	var req CreateRefactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.Mode == "" {
		req.Mode = models.ModeAutonomous
	}

	sess, err := s.sessions.Create(session.CreateParams{
		UserID:     req.UserID,
		UserPrompt: req.UserPrompt,
		RepoURL:    req.RepoURL,
		Mode:       req.Mode,
		MaxRetries: req.MaxRetries,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bus := s.buses.Create(sess.ID)

	// The pipeline outlives the request; it is bounded by its own
	// timeouts, not the HTTP context.
	go s.controller.Run(context.Background(), sess, bus)

	resp := CreateRefactorResponse{
		SessionID: sess.ID,
		Status:    string(models.StatusPending),
		StatusURL: fmt.Sprintf("/api/refactor/%s", sess.ID),
		SSEURL:    fmt.Sprintf("/api/refactor/%s/sse", sess.ID),
	}
	if req.Mode != models.ModeAutonomous {
		resp.WebsocketURL = fmt.Sprintf("/ws/refactor/%s", sess.ID)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listRefactors(c *gin.Context) {
	snapshots := s.sessions.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": snapshots,
		"count":    len(snapshots),
	})
}

func (s *Server) getRefactor(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) cancelRefactor(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if !sess.Cancel() {
		c.JSON(http.StatusConflict, gin.H{"error": "session is not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "message": "cancellation requested"})
}

// confirmPlanRequest carries either a structured decision or free-form
// text, never both.
type confirmPlanRequest struct {
	Action        string `json:"action,omitempty"`
	Modifications string `json:"modifications,omitempty"`
	UserResponse  string `json:"user_response,omitempty"`
}

func (s *Server) confirmPlan(c *gin.Context) {
	var req confirmPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if err := exactlyOne(req.Action != "", req.UserResponse != ""); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := session.ConfirmPayload{Type: models.ConfirmationPlan, UserResponse: req.UserResponse}
	if req.Action != "" {
		switch req.Action {
		case "approve":
			payload.Approved = true
		case "modify":
			payload.Modifications = req.Modifications
			if payload.Modifications == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "action modify requires modifications"})
				return
			}
		case "cancel":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown action %q", req.Action)})
			return
		}
	}
	s.deliver(c, models.ConfirmationPlan, payload)
}

type confirmValidationRequest struct {
	ValidationMode string `json:"validation_mode,omitempty"`
	UserResponse   string `json:"user_response,omitempty"`
}

func (s *Server) confirmValidation(c *gin.Context) {
	var req confirmValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if err := exactlyOne(req.ValidationMode != "", req.UserResponse != ""); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := strings.ToLower(req.ValidationMode)
	switch mode {
	case "", "full", "compile_only", "skip":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown validation_mode %q", req.ValidationMode)})
		return
	}

	s.deliver(c, models.ConfirmationValidation, session.ConfirmPayload{
		Type:           models.ConfirmationValidation,
		UserResponse:   req.UserResponse,
		Approved:       mode != "",
		ValidationMode: mode,
	})
}

type confirmPushRequest struct {
	Action                string `json:"action,omitempty"`
	BranchOverride        string `json:"branch_name_override,omitempty"`
	CommitMessageOverride string `json:"commit_message_override,omitempty"`
	UserResponse          string `json:"user_response,omitempty"`
}

func (s *Server) confirmPush(c *gin.Context) {
	var req confirmPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if err := exactlyOne(req.Action != "", req.UserResponse != ""); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Action != "" && req.Action != "approve" && req.Action != "cancel" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown action %q", req.Action)})
		return
	}

	s.deliver(c, models.ConfirmationPush, session.ConfirmPayload{
		Type:                  models.ConfirmationPush,
		UserResponse:          req.UserResponse,
		Approved:              req.Action == "approve",
		BranchOverride:        req.BranchOverride,
		CommitMessageOverride: req.CommitMessageOverride,
	})
}

// deliver checks the session is paused at the expected gate and hands
// the payload to the pipeline goroutine.
func (s *Server) deliver(c *gin.Context, gate models.ConfirmationType, payload session.ConfirmPayload) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if awaiting := sess.Awaiting(); awaiting != gate {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("session is not awaiting %s confirmation (awaiting: %q)", gate, awaiting),
		})
		return
	}
	if err := sess.Confirmations().Deliver(payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "message": fmt.Sprintf("%s confirmation delivered", gate)})
}

func exactlyOne(structured, freeform bool) error {
	switch {
	case structured && freeform:
		return fmt.Errorf("provide either the structured fields or user_response, not both")
	case !structured && !freeform:
		return fmt.Errorf("provide either the structured fields or user_response")
	}
	return nil
}
