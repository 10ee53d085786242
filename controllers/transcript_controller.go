package controllers

import (
	"errors"
	"net/http"

	"debatecoach/internal/speech"
	"debatecoach/internal/uploads"
	"debatecoach/middlewares"
	"debatecoach/models"
	"debatecoach/services"

	"github.com/gin-gonic/gin"
)

const (
	noFileMsg          = "No file provided"
	fileTooLargeMsg    = "Audio file too large"
	notUnderstoodMsg   = "Could not understand audio"
	speechDownMsg      = "Speech Recognition API unavailable"
	uploadFailedMsg    = "Failed to process audio upload"
	audioFormFieldName = "file"
)

// SpeechToText transcribes the audio clip uploaded in the "file" form field.
func SpeechToText(c *gin.Context) {
	if limit := services.UploadBodyLimit(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	header, err := c.FormFile(audioFormFieldName)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fileTooLargeMsg})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: noFileMsg})
		return
	}

	audio, err := header.Open()
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: uploadFailedMsg})
		return
	}
	defer audio.Close()

	requestID := c.GetString(middlewares.RequestIDKey)
	text, err := services.TranscribeUpload(c.Request.Context(), requestID, audio, header.Filename)
	if err != nil {
		c.Error(err)
		status, msg := transcriptionError(err)
		c.JSON(status, models.ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, models.Transcription{Text: text})
}

func transcriptionError(err error) (int, string) {
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		return http.StatusBadRequest, fileTooLargeMsg
	case errors.Is(err, speech.ErrNoSpeech), errors.Is(err, speech.ErrUndecodableAudio):
		return http.StatusBadRequest, notUnderstoodMsg
	case errors.Is(err, speech.ErrUnavailable):
		return http.StatusInternalServerError, speechDownMsg
	default:
		return http.StatusInternalServerError, uploadFailedMsg
	}
}
