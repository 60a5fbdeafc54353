package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// parseID reads a positive path parameter. On failure it writes a 400 with
// message and returns the parse error.
func parseID(c *gin.Context, param, message string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err == nil && id == 0 {
		err = strconv.ErrRange
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return 0, err
	}
	return uint(id), nil
}

// queryInt reads an integer query parameter, falling back to def when it is
// absent or malformed.
func queryInt(c *gin.Context, name string, def int) int {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return value
}
