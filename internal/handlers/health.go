package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports that the API process is up. It does not check dependencies.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "TaskGenie API is running",
	})
}
