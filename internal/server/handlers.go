package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jeefy/recordchat/internal/models"
	"github.com/jeefy/recordchat/internal/store"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type updateRequest struct {
	ID    *int64 `json:"id" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// field name -> json key and message reported to the client
var updateFieldMessages = map[string]fieldError{
	"ID":    {Field: "id", Message: "ID must be an integer"},
	"Name":  {Field: "name", Message: "Name is required"},
	"Value": {Field: "value", Message: "Value is required"},
}

// GET /search?q=
func (s *Server) handleSearch(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) > maxQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"errors":  []fieldError{{Field: "q", Message: "Query must be at most 256 characters"}},
		})
		return
	}
	results, err := s.store.Search(c.Request.Context(), q, searchLimit)
	if err != nil {
		s.internalError(c, "Error searching records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(results),
		"data":    results,
	})
}

// GET /records
func (s *Server) handleRecords(c *gin.Context) {
	records, err := s.store.List(c.Request.Context())
	if err != nil {
		s.internalError(c, "Error fetching records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(records),
		"data":    records,
	})
}

// POST /update
func (s *Server) handleUpdate(c *gin.Context) {
	var req updateRequest
	var errs []fieldError
	if err := c.ShouldBindJSON(&req); err != nil {
		var ok bool
		if errs, ok = bindErrors(err); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": errs})
			return
		}
	}
	// Fields decoded before a binding failure are still checked so every
	// problem is reported at once.
	name := strings.TrimSpace(req.Name)
	value := strings.TrimSpace(req.Value)
	if name == "" {
		errs = addFieldError(errs, updateFieldMessages["Name"])
	}
	if value == "" {
		errs = addFieldError(errs, updateFieldMessages["Value"])
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": errs})
		return
	}

	rec, err := s.store.Update(c.Request.Context(), models.Record{ID: *req.ID, Name: name, Value: value})
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Record not found"})
		return
	}
	if err != nil {
		s.internalError(c, "Error updating record", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Record updated successfully",
		"record":  rec,
	})
}

// bindErrors turns a binding failure into field-level messages. It reports
// false when the body could not be read as an update object at all.
func bindErrors(err error) ([]fieldError, bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			if m, ok := updateFieldMessages[fe.Field()]; ok {
				out = addFieldError(out, m)
				continue
			}
			out = addFieldError(out, fieldError{Field: strings.ToLower(fe.Field()), Message: fe.Error()})
		}
		return out, true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		for _, m := range updateFieldMessages {
			if m.Field == typeErr.Field {
				return []fieldError{m}, true
			}
		}
		return []fieldError{{Field: typeErr.Field, Message: "Invalid type"}}, true
	}
	return []fieldError{{Field: "body", Message: "Request body must be a JSON object"}}, false
}

func addFieldError(errs []fieldError, fe fieldError) []fieldError {
	for _, e := range errs {
		if e.Field == fe.Field {
			return errs
		}
	}
	return append(errs, fe)
}

// POST /chat
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Message is required"})
		return
	}
	ctx := c.Request.Context()
	records, err := s.store.List(ctx)
	if err != nil {
		s.internalError(c, "Error processing chat request", err)
		return
	}
	resp := s.nlp.Process(req.Message, records)
	if !resp.HasPayload() {
		resp = s.assistant.Respond(ctx, req.Message)
	}
	c.JSON(http.StatusOK, resp)
}

// GET /health
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	db := "connected"
	if err := s.store.Ping(ctx); err != nil {
		db = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"database":  db,
		"backend":   s.backend,
	})
}
