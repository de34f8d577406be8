package library

import (
	"errors"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	minTitleLength       = 3
	maxDescriptionLength = 2000
	maxPageCount         = math.MaxInt32
)

const (
	msgTitleRequired      = "Book title is required"
	msgTitleTooShort      = "Title must be at least 3 characters"
	msgDescriptionTooLong = "Book Description must be less than 2000 characters"
	msgAuthorsRequired    = "At least one author is required"
	msgAuthorBlank        = "Author names must not be blank"
	msgPageCountPositive  = "Page count must be positive"
	msgPageCountInteger   = "Page count must be an integer"
	msgPageCountTooLarge  = "Page count is too large"
	msgExternalIDLocked   = "External id can not be changed"
	msgSearchTermRequired = "Search term is required"
)

// ErrValidation matches every *ValidationError through errors.Is.
var ErrValidation = errors.New("library: validation failed")

// FieldError describes one violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violated constraint of a payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+": "+field.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Message returns the first field message.
func (e *ValidationError) Message() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return e.Fields[0].Message
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// BookInput carries user-supplied fields. Nil fields were absent from the payload.
// PageCount is a float so fractional values reach validation instead of failing decoding.
type BookInput struct {
	ExternalID    *string  `json:"externalId"`
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	Authors       []string `json:"authors"`
	Publisher     *string  `json:"publisher"`
	PublishedDate *string  `json:"publishedDate"`
	PageCount     *float64 `json:"pageCount"`
}

// Draft is a validated book ready to be stored.
type Draft struct {
	Origin        Origin
	Title         string
	Description   string
	Authors       []string
	Publisher     string
	PublishedDate string
	PageCount     int
}

// Validate checks a create payload and returns the normalized draft.
func Validate(input BookInput) (Draft, error) {
	problems := &ValidationError{}
	draft := Draft{Origin: Unlinked(), Authors: []string{}}

	if input.ExternalID != nil {
		if trimmed := strings.TrimSpace(*input.ExternalID); trimmed != "" {
			draft.Origin = Linked(trimmed)
		}
	}
	if input.Title == nil {
		problems.add("title", msgTitleRequired)
	} else {
		draft.Title = validateTitle(*input.Title, problems)
	}
	if input.Description != nil {
		draft.Description = validateDescription(*input.Description, problems)
	}
	draft.Authors = validateAuthors(input.Authors, problems)
	if input.Publisher != nil {
		draft.Publisher = strings.TrimSpace(*input.Publisher)
	}
	if input.PublishedDate != nil {
		draft.PublishedDate = strings.TrimSpace(*input.PublishedDate)
	}
	draft.PageCount = validatePageCount(input.PageCount, problems)

	if err := problems.orNil(); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

// ApplyPatch merges a partial update into an existing book and validates the result.
// Absent fields keep their stored values; the origin can never change.
func ApplyPatch(existing UserBook, patch BookInput) (Draft, error) {
	problems := &ValidationError{}
	draft := Draft{
		Origin:        existing.Origin(),
		Title:         existing.Title,
		Description:   existing.Description,
		Authors:       existing.Authors,
		Publisher:     existing.Publisher,
		PublishedDate: existing.PublishedDate,
		PageCount:     existing.PageCount,
	}

	if patch.ExternalID != nil {
		problems.add("externalId", msgExternalIDLocked)
	}
	if patch.Title != nil {
		draft.Title = validateTitle(*patch.Title, problems)
	}
	if patch.Description != nil {
		draft.Description = validateDescription(*patch.Description, problems)
	}
	if patch.Authors != nil {
		draft.Authors = validateAuthors(patch.Authors, problems)
	}
	if patch.Publisher != nil {
		draft.Publisher = strings.TrimSpace(*patch.Publisher)
	}
	if patch.PublishedDate != nil {
		draft.PublishedDate = strings.TrimSpace(*patch.PublishedDate)
	}
	if patch.PageCount != nil {
		draft.PageCount = validatePageCount(patch.PageCount, problems)
	}

	if err := problems.orNil(); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

func validateTitle(raw string, problems *ValidationError) string {
	title := strings.TrimSpace(raw)
	switch {
	case title == "":
		problems.add("title", msgTitleRequired)
	case utf8.RuneCountInString(title) < minTitleLength:
		problems.add("title", msgTitleTooShort)
	}
	return title
}

func validateDescription(raw string, problems *ValidationError) string {
	if utf8.RuneCountInString(raw) > maxDescriptionLength {
		problems.add("description", msgDescriptionTooLong)
	}
	return raw
}

func validateAuthors(raw []string, problems *ValidationError) []string {
	if len(raw) == 0 {
		problems.add("authors", msgAuthorsRequired)
		return []string{}
	}
	authors := make([]string, 0, len(raw))
	for _, author := range raw {
		trimmed := strings.TrimSpace(author)
		if trimmed == "" {
			problems.add("authors", msgAuthorBlank)
			return authors
		}
		authors = append(authors, trimmed)
	}
	return authors
}

// validatePageCount treats an absent or zero count as unknown (0).
func validatePageCount(raw *float64, problems *ValidationError) int {
	if raw == nil {
		return 0
	}
	value := *raw
	switch {
	case math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value):
		problems.add("pageCount", msgPageCountInteger)
		return 0
	case value < 0:
		problems.add("pageCount", msgPageCountPositive)
		return 0
	case value > maxPageCount:
		problems.add("pageCount", msgPageCountTooLarge)
		return 0
	}
	return int(value)
}

// validateSearchTerm trims a catalog search term and rejects blank input.
func validateSearchTerm(raw string) (string, error) {
	term := strings.TrimSpace(raw)
	if term == "" {
		problems := &ValidationError{}
		problems.add("q", msgSearchTermRequired)
		return "", problems
	}
	return term, nil
}
