package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/digibiomics/LungSense-main/jobs"
	"github.com/digibiomics/LungSense-main/lifecycle"
	"github.com/digibiomics/LungSense-main/shared/security"
	"github.com/gin-gonic/gin"
)

// respondError writes the error envelope for err. It is the only place that
// maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var verr *lifecycle.ValidationError
	switch {
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if verr.Unprocessable {
			status = http.StatusUnprocessableEntity
		}
		security.SendError(c, status, security.CodeValidationError, "Validation failed", verr.Error(), gin.H{"field": verr.Field})
	case errors.Is(err, lifecycle.ErrDuplicateEmail):
		security.SendError(c, http.StatusConflict, security.CodeDuplicateEmail, "Email already registered",
			"An account with this email already exists", nil)
	case errors.Is(err, lifecycle.ErrDuplicatePractitionerID):
		security.SendError(c, http.StatusConflict, security.CodeDuplicatePractitionerID, "Practitioner ID already registered",
			"Another practitioner already uses this practitioner ID", nil)
	case errors.Is(err, lifecycle.ErrInvalidCredentials):
		security.SendError(c, http.StatusUnauthorized, security.CodeInvalidCredentials, "Invalid credentials",
			"Invalid email or password", nil)
	case errors.Is(err, lifecycle.ErrUnauthorized):
		security.SendUnauthorized(c)
	case errors.Is(err, lifecycle.ErrForbidden):
		security.SendError(c, http.StatusForbidden, security.CodeInsufficientPermissions, "Insufficient permissions",
			"You are not allowed to act on this account", nil)
	case errors.Is(err, lifecycle.ErrNotFound):
		security.SendNotFoundError(c, "account")
	case errors.Is(err, jobs.ErrJobNotFound):
		security.SendNotFoundError(c, "prediction")
	case errors.Is(err, lifecycle.ErrStorageTimeout):
		log.Printf("Storage timeout on %s %s: %v", c.Request.Method, c.FullPath(), err)
		security.SendError(c, http.StatusGatewayTimeout, security.CodeDatabaseTimeout, "Database timeout",
			"The database did not respond in time. Please try again", nil)
	case errors.Is(err, lifecycle.ErrStorageUnavailable):
		log.Printf("Storage failure on %s %s: %v", c.Request.Method, c.FullPath(), err)
		security.SendDatabaseError(c, "The request could not be completed. Please try again later")
	case errors.Is(err, jobs.ErrQueueUnavailable):
		log.Printf("Job queue failure on %s %s: %v", c.Request.Method, c.FullPath(), err)
		security.SendError(c, http.StatusServiceUnavailable, security.CodeQueueUnavailable, "Job queue unavailable",
			"Background processing is currently unavailable", nil)
	default:
		log.Printf("Unexpected error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		security.SendError(c, http.StatusInternalServerError, security.CodeInternalServerError, "Internal server error",
			"An unexpected error occurred", nil)
	}
}

// currentActor returns the caller set by security.AuthMiddleware.
func currentActor(c *gin.Context) lifecycle.Actor {
	account, _ := security.CurrentAccount(c)
	return lifecycle.ActorFor(account)
}
