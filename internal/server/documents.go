package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	documentdomain "github.com/smallbiznis/vendorbill/internal/document/domain"
	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
)

type createDocumentRequest struct {
	Kind          string            `json:"kind" binding:"required,oneof=quotation invoice"`
	ServiceType   string            `json:"service_type" binding:"required,service_type"`
	Currency      string            `json:"currency" binding:"omitempty,len=3"`
	CustomerName  string            `json:"customer_name" binding:"required"`
	CustomerEmail string            `json:"customer_email" binding:"omitempty,email"`
	Notes         string            `json:"notes"`
	Metadata      map[string]any    `json:"metadata"`
	Items         []lineItemRequest `json:"items" binding:"dive"`
	guestRequest
}

type updateDocumentRequest struct {
	ServiceType      *string           `json:"service_type" binding:"omitempty,service_type"`
	Currency         *string           `json:"currency" binding:"omitempty,len=3"`
	CustomerName     *string           `json:"customer_name" binding:"omitempty,min=1"`
	CustomerEmail    *string           `json:"customer_email" binding:"omitempty,email"`
	Notes            *string           `json:"notes"`
	Metadata         map[string]any    `json:"metadata"`
	IsForeigner      *bool             `json:"is_foreigner"`
	GuestNationality *string           `json:"guest_nationality" binding:"omitempty,len=2"`
	BookingType      *string           `json:"booking_type"`
	PromoCode        *string           `json:"promo_code"`
	Items            []lineItemRequest `json:"items" binding:"omitempty,dive"`
}

type listDocumentsQuery struct {
	Kind    string `form:"kind" binding:"omitempty,oneof=quotation invoice"`
	Status  string `form:"status"`
	SortBy  string `form:"sort_by"`
	OrderBy string `form:"order_by" binding:"omitempty,oneof=asc desc"`
	pagination.Pagination
}

type documentReasonRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CreateDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("document_kind", req.Kind)

	doc, err := s.documentSvc.Create(c.Request.Context(), documentdomain.CreateRequest{
		Kind:          strings.TrimSpace(req.Kind),
		ServiceType:   strings.TrimSpace(req.ServiceType),
		Currency:      strings.TrimSpace(req.Currency),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Notes:         strings.TrimSpace(req.Notes),
		Metadata:      req.Metadata,
		Items:         toLineItemInputs(req.Items),
		GuestContext:  req.guestRequest.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondCreated(c, doc)
}

func (s *Server) ListDocuments(c *gin.Context) {
	var query listDocumentsQuery
	if err := bindQuery(c, &query); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.documentSvc.List(c.Request.Context(), documentdomain.ListRequest{
		Kind:       strings.TrimSpace(query.Kind),
		Status:     strings.TrimSpace(query.Status),
		SortBy:     strings.TrimSpace(query.SortBy),
		OrderBy:    strings.TrimSpace(query.OrderBy),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Documents, resp.PageInfo)
}

func (s *Server) GetDocument(c *gin.Context) {
	doc, err := s.documentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("document_kind", string(doc.Kind))

	respondOK(c, doc)
}

func (s *Server) UpdateDocument(c *gin.Context) {
	var req updateDocumentRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.documentSvc.Update(c.Request.Context(), documentdomain.UpdateRequest{
		ID:               strings.TrimSpace(c.Param("id")),
		ServiceType:      trimString(req.ServiceType),
		Currency:         trimString(req.Currency),
		CustomerName:     trimString(req.CustomerName),
		CustomerEmail:    trimString(req.CustomerEmail),
		Notes:            trimString(req.Notes),
		Metadata:         req.Metadata,
		IsForeigner:      req.IsForeigner,
		GuestNationality: trimString(req.GuestNationality),
		BookingType:      trimString(req.BookingType),
		PromoCode:        trimString(req.PromoCode),
		Items:            toLineItemInputs(req.Items),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("document_kind", string(doc.Kind))

	respondOK(c, doc)
}

func (s *Server) FinalizeDocument(c *gin.Context) {
	doc, err := s.documentSvc.Finalize(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("document_kind", string(doc.Kind))

	respondOK(c, doc)
}

func (s *Server) VoidDocument(c *gin.Context) {
	reason, ok := bindReason(c)
	if !ok {
		return
	}

	doc, err := s.documentSvc.Void(c.Request.Context(), strings.TrimSpace(c.Param("id")), reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("document_kind", string(doc.Kind))

	respondOK(c, doc)
}

func (s *Server) AcceptDocument(c *gin.Context) {
	doc, err := s.documentSvc.Accept(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("document_kind", string(doc.Kind))

	respondOK(c, doc)
}

func (s *Server) RejectDocument(c *gin.Context) {
	reason, ok := bindReason(c)
	if !ok {
		return
	}

	doc, err := s.documentSvc.Reject(c.Request.Context(), strings.TrimSpace(c.Param("id")), reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("document_kind", string(doc.Kind))

	respondOK(c, doc)
}

func (s *Server) ConvertDocument(c *gin.Context) {
	doc, err := s.documentSvc.Convert(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("document_kind", string(doc.Kind))

	respondCreated(c, doc)
}

func (s *Server) DownloadDocumentPDF(c *gin.Context) {
	rendered, err := s.documentSvc.RenderPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+rendered.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", rendered.Content)
}

// bindReason reads the optional reason body. An empty body is fine.
func bindReason(c *gin.Context) (string, bool) {
	if c.Request.ContentLength == 0 {
		return "", true
	}
	var req documentReasonRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return "", false
	}
	return strings.TrimSpace(req.Reason), true
}
