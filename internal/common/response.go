package common

import (
	"github.com/gin-gonic/gin"
)

func OK(c *gin.Context, data any) {
	c.JSON(200, data)
}

// Fail writes the {message} error body every endpoint shares.
func Fail(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{"message": msg})
}

// FailErr maps err onto its status code and public message.
func FailErr(c *gin.Context, err error, fallback string) {
	Fail(c, Status(KindOf(err)), Message(err, fallback))
}
