package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/pkg/utils"
)

// sendDomainError maps the domain error taxonomy onto the HTTP envelope.
func sendDomainError(c *gin.Context, err error) {
	switch {
	case apperr.IsNotFound(err):
		utils.SendNotFound(c, err.Error())
	case apperr.IsValidation(err):
		utils.SendValidationError(c, err.Error(), "")
	case apperr.IsConflict(err):
		utils.SendConflict(c, err.Error())
	case apperr.IsInsufficient(err):
		utils.SendInsufficient(c, err.Error())
	default:
		utils.SendInternalError(c, "internal error")
	}
}
