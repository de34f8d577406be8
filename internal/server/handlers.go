package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/library"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgBookNotFound   = "Book not found in your library."
	msgBookFound      = "Here your book is. Enjoy Reading!"
	msgBookExists     = "This book is already in your library."
	msgBookUpdated    = "This book updated successfully."
	msgBookDeleted    = "This book deleted successfully."
	msgBookPredefined = "This book can not be updated, because it's predefined book."
	msgInvalidBookID  = "Invalid book id."
	msgInvalidRequest = "Request body must be a JSON book object."
)

type searchResponsePayload struct {
	QueryTerm   string `json:"QueryTerm"`
	QueryResult any    `json:"Query result"`
}

func (h *httpHandler) handleListCatalog(c *gin.Context) {
	books, err := h.library.ListCatalog(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *httpHandler) handleListCatalogByCategory(c *gin.Context) {
	books, err := h.library.ListCatalogByCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *httpHandler) handleSearchCatalog(c *gin.Context) {
	result, err := h.library.SearchCatalog(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, searchResponsePayload{QueryTerm: result.QueryTerm, QueryResult: result.Books})
}

func (h *httpHandler) handleListBooks(c *gin.Context) {
	books, err := h.library.ListBooks(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *httpHandler) handleGetBook(c *gin.Context) {
	book, err := h.library.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgBookFound, "singlebook": book})
}

func (h *httpHandler) handleCreateBook(c *gin.Context) {
	var input library.BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": msgInvalidRequest})
		return
	}

	result, err := h.library.CreateBook(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if result.Existing {
		c.JSON(http.StatusOK, gin.H{"found": result.Book, "message": msgBookExists})
		return
	}
	c.JSON(http.StatusCreated, result.Book)
}

// handleUpdateBook treats an empty body as an empty patch. An undecodable body is
// reported only after the book is known to exist and to be editable.
func (h *httpHandler) handleUpdateBook(c *gin.Context) {
	var patch library.BookInput
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		h.rejectUndecodablePatch(c)
		return
	}

	book, err := h.library.UpdateBook(c.Request.Context(), c.Param("id"), patch)
	if errors.Is(err, library.ErrPredefinedBook) {
		c.JSON(http.StatusBadRequest, gin.H{"found": book, "message": msgBookPredefined})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": book, "message": msgBookUpdated})
}

func (h *httpHandler) rejectUndecodablePatch(c *gin.Context) {
	book, err := h.library.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if book.Origin().IsLinked() {
		c.JSON(http.StatusBadRequest, gin.H{"found": book, "message": msgBookPredefined})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": msgInvalidRequest})
}

func (h *httpHandler) handleDeleteBook(c *gin.Context) {
	book, err := h.library.DeleteBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedbook": book, "message": msgBookDeleted})
}

func (h *httpHandler) handleStats(c *gin.Context) {
	stats, err := h.library.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	// An empty library is reported as JSON null.
	c.JSON(http.StatusOK, stats)
}

// writeError maps library errors onto status codes and response bodies.
func (h *httpHandler) writeError(c *gin.Context, err error) {
	var validationErr *library.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_book",
			"message": validationErr.Message(),
			"errors":  validationErr.Fields,
		})
	case errors.Is(err, library.ErrInvalidBookID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_book_id", "message": msgInvalidBookID})
	case errors.Is(err, library.ErrBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "book_not_found", "message": msgBookNotFound})
	default:
		body := gin.H{"error": "internal_error", "message": err.Error()}
		var serviceErr *library.ServiceError
		if errors.As(err, &serviceErr) {
			body["code"] = serviceErr.Code()
			if cause := serviceErr.Unwrap(); cause != nil {
				body["message"] = cause.Error()
			}
		}
		h.logger.Error("library request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, body)
	}
}
