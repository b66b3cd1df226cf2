package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// pathID parses a snowflake path parameter. Anything unparsable is reported
// as notFound, matching what a lookup of an unknown id would return.
func pathID(c *gin.Context, name string, notFound error) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(c.Param(name))
	if trimmed == "" {
		return 0, notFound
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed <= 0 {
		return 0, notFound
	}
	return parsed, nil
}

func bindQuery(c *gin.Context, out any) error {
	if err := c.ShouldBindQuery(out); err != nil {
		return invalidRequestError()
	}
	return nil
}

func bindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return invalidRequestError()
	}
	return nil
}
