package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/vendorbill/internal/audit/domain"
	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	Action     string  `form:"action"`
	TargetType string  `form:"target_type"`
	TargetID   string  `form:"target_id"`
	StartAt    *string `form:"start_at"`
	EndAt      *string `form:"end_at"`
	pagination.Pagination
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	if s.auditSvc == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var query listAuditLogsQuery
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}

	startAt, err := parseOptionalTime(query.StartAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid start_at"))
		return
	}
	endAt, err := parseOptionalTime(query.EndAt, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid end_at"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListRequest{
		Pagination: query.Pagination,
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.AuditLogs, resp.PageInfo)
}
