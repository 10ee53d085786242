package routes

import (
	"errors"
	"net/http"

	"debatecoach/controllers"
	"debatecoach/middlewares"
	"debatecoach/models"
	"debatecoach/services"

	"github.com/gin-gonic/gin"
)

const (
	welcomePage       = "<h1>Welcome to the AI Debate Coach Backend</h1>"
	missingInputMsg   = "No text or topic provided"
	contentBlockedMsg = "AI could not generate a response due to content restrictions. Please rephrase your argument."
)

// SetupCoachRoutes registers the welcome page and the two relay operations.
func SetupCoachRoutes(router gin.IRouter) {
	router.GET("/", Home)
	router.POST("/speech-to-text", controllers.SpeechToText)
	router.POST("/evaluate-argument", EvaluateArgument)
}

// Home serves the static welcome page
func Home(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(welcomePage))
}

// EvaluateArgument scores the user's argument for a topic and returns the
// coach's reasoning, feedback and improved argument
func EvaluateArgument(c *gin.Context) {
	var req models.EvaluateArgumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: missingInputMsg})
		return
	}

	requestID := c.GetString(middlewares.RequestIDKey)
	evaluation, err := services.EvaluateArgument(c.Request.Context(), requestID, req.Topic, req.Text)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, evaluation)
	case errors.Is(err, services.ErrMissingInput):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: missingInputMsg})
	case errors.Is(err, services.ErrContentBlocked):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: contentBlockedMsg})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	}
}
