package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CodeLookup returns the last code delivered to an address.
type CodeLookup interface {
	Latest(address string) (string, bool)
}

// DevHandler exposes captured verification codes. Only registered outside production.
type DevHandler struct {
	codes CodeLookup
}

func NewDevHandler(codes CodeLookup) *DevHandler {
	return &DevHandler{codes: codes}
}

func (h *DevHandler) LatestOTP(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email is required."})
		return
	}
	code, ok := h.codes.Latest(email)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No code captured for this address."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "email": email, "code": code})
}
