package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"schemaboard/internal/responses"
	"schemaboard/internal/schema"
	"schemaboard/internal/services"
)

type SchemaHandler struct {
	schemaService *services.SchemaService
}

func NewSchemaHandler(schemaService *services.SchemaService) *SchemaHandler {
	return &SchemaHandler{schemaService: schemaService}
}

// ImportSQL handles POST /api/v1/schema/import-sql. Parsing is lenient, so a
// syntactically broken script still yields whatever tables could be read.
func (h *SchemaHandler) ImportSQL(c *gin.Context) {
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result := h.schemaService.ImportSQL(req.SQL)

	responses.Success(c, http.StatusOK, result, "SQL imported successfully")
}

// ExportSQL handles POST /api/v1/schema/export-sql. The body carries the
// diagram's tables; validation problems come back aggregated as 422.
func (h *SchemaHandler) ExportSQL(c *gin.Context) {
	var req struct {
		Tables []schema.Table `json:"tables"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	sql, err := h.schemaService.ExportSQL(req.Tables)
	if err != nil {
		var vErr *schema.ValidationError
		if errors.As(err, &vErr) {
			responses.ValidationFailed(c, "Schema has validation problems", vErr.Problems)
			return
		}
		var gErr *schema.GenerationError
		if errors.As(err, &gErr) {
			responses.ValidationFailed(c, "Schema could not be exported", gErr.Problems)
			return
		}
		responses.Fail(c, http.StatusInternalServerError, err, "Failed to export SQL")
		return
	}

	res := gin.H{
		"sql": sql,
	}

	responses.Success(c, http.StatusOK, res, "SQL exported successfully")
}

// ImportDatabase handles POST /api/v1/schema/import-database — introspects a
// live PostgreSQL database and returns it in diagram form.
func (h *SchemaHandler) ImportDatabase(c *gin.Context) {
	var req struct {
		DSN    string `json:"dsn" binding:"required"`
		Schema string `json:"schema"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.schemaService.ImportFromDatabase(c.Request.Context(), req.DSN, req.Schema)
	if err != nil {
		responses.Fail(c, http.StatusBadGateway, err, "Could not read the source database")
		return
	}

	responses.Success(c, http.StatusOK, result, "Database imported successfully")
}
