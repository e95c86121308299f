package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/medisys/clinicore/internal/catalog/domain"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
)

func (s *Server) CreateCatalogTest(c *gin.Context) {
	var req catalogdomain.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	test, err := s.catalogSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, test)
}

func (s *Server) ListCatalogTests(c *gin.Context) {
	actor, _ := actorFrom(c)

	req := catalogdomain.ListTestsRequest{
		Category:    strings.TrimSpace(c.Query("category")),
		SearchQuery: strings.TrimSpace(c.Query("q")),
	}
	// Only admins may see deactivated entries.
	if c.Query("include_inactive") == "true" && actor.Role == userdomain.RoleAdmin {
		req.IncludeAll = true
	}

	tests, err := s.catalogSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"catalog_tests": tests})
}

func (s *Server) GetCatalogTest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	test, err := s.catalogSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

func (s *Server) UpdateCatalogTest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req catalogdomain.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	test, err := s.catalogSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

func (s *Server) DeactivateCatalogTest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.catalogSvc.Deactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
