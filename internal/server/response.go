package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
)

// envelope is the shape of every API response body.
type envelope struct {
	Success      bool                 `json:"success"`
	Data         any                  `json:"data,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Errors       []ValidationError    `json:"errors,omitempty"`
	Pagination   *pagination.PageInfo `json:"pagination,omitempty"`
}

func failure(message string, errs []ValidationError) envelope {
	return envelope{Success: false, ErrorMessage: message, Errors: errs}
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

func respondPage(c *gin.Context, data any, page pagination.PageInfo) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Pagination: &page})
}
