// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/siemens-healthineers/rocoknight/internal/capture"
	"github.com/siemens-healthineers/rocoknight/internal/launcher"
	"github.com/siemens-healthineers/rocoknight/internal/packet"
	"github.com/siemens-healthineers/rocoknight/internal/speed"
)

const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

var (
	errBadRequest    = errors.New("bad request")
	errNotFound      = errors.New("not found")
	errUnprocessable = errors.New("unprocessable request")
)

// Failure is the error body of all endpoints
type Failure struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

type failureResponse struct {
	Failure Failure `json:"error"`
}

type errorMapping struct {
	target   error
	status   int
	severity string
	code     string
}

var errorMappings = []errorMapping{
	{launcher.ErrLaunchInProgress, http.StatusConflict, SeverityWarning, "launch-in-progress"},
	{launcher.ErrProjectorRunning, http.StatusConflict, SeverityWarning, "projector-running"},
	{launcher.ErrNoAssetURL, http.StatusConflict, SeverityWarning, "no-asset-url"},
	{launcher.ErrResetRequired, http.StatusConflict, SeverityWarning, "reset-required"},
	{capture.ErrValidation, http.StatusUnprocessableEntity, SeverityWarning, "capture-validation"},
	{speed.ErrInvalidMultiplier, http.StatusUnprocessableEntity, SeverityWarning, "invalid-multiplier"},
	{errUnprocessable, http.StatusUnprocessableEntity, SeverityWarning, "unprocessable"},
	{packet.ErrNotRunning, http.StatusNotFound, SeverityWarning, "packet-interception-not-running"},
	{errNotFound, http.StatusNotFound, SeverityWarning, "not-found"},
	{errBadRequest, http.StatusBadRequest, SeverityWarning, "bad-request"},
}

func writeError(c *gin.Context, err error) {
	status, failure := toFailure(err)
	c.JSON(status, failureResponse{Failure: failure})
}

func toFailure(err error) (int, Failure) {
	var launchFailure *launcher.Failure
	if errors.As(err, &launchFailure) {
		return http.StatusInternalServerError, Failure{
			Severity: SeverityError,
			Code:     string(launchFailure.Kind),
			Message:  launchFailure.Message,
		}
	}

	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.target) {
			return mapping.status, Failure{Severity: mapping.severity, Code: mapping.code, Message: err.Error()}
		}
	}
	return http.StatusInternalServerError, Failure{Severity: SeverityError, Code: "internal", Message: err.Error()}
}

// login responses without a login value are expected while the user navigates
func isSoftCaptureError(err error) bool {
	return errors.Is(err, capture.ErrNotObserved) || errors.Is(err, capture.ErrNoValue)
}
