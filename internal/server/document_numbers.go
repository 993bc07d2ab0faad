package server

import (
	"github.com/gin-gonic/gin"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
)

// PreviewDocumentNumber shows the number the next finalization of kind
// would receive. The counter is not advanced.
func (s *Server) PreviewDocumentNumber(c *gin.Context) {
	kind, ok := docnumberdomain.ParseKind(c.Param("kind"))
	if !ok {
		AbortWithError(c, docnumberdomain.ErrInvalidKind)
		return
	}
	c.Set("document_kind", string(kind))

	preview, err := s.numberSvc.Preview(c.Request.Context(), kind)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, preview)
}
