package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a client-facing code and message derived from an internal error
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps database and infrastructure errors onto response codes without
// leaking driver details. context names the operation, e.g. "create review".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: getDefaultErrorMessage(context)}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return getNotFoundInfo(context)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return parseDuplicateKeyError(err.Error(), context)
	}

	errLower := strings.ToLower(err.Error())

	// PostgreSQL 23505 / SQLite UNIQUE
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower, context)
	}
	// 23503
	if strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceNotFound, Message: "Referenced resource not found"}
	}
	// 23514
	if strings.Contains(errLower, "check constraint") {
		return parseCheckConstraintError(errLower)
	}
	if strings.Contains(errLower, "connection refused") || strings.Contains(errLower, "timeout") {
		return ErrorInfo{Code: InternalDatabaseError, Message: "Service temporarily unavailable, please try again"}
	}

	return ErrorInfo{Code: InternalServerError, Message: getDefaultErrorMessage(context)}
}

func parseDuplicateKeyError(errStr string, context string) ErrorInfo {
	errLower := strings.ToLower(errStr)
	ctx := strings.ToLower(context)

	switch {
	case strings.Contains(errLower, "email") || strings.Contains(ctx, "register"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "User already exists"}
	case strings.Contains(errLower, "review") || strings.Contains(ctx, "review"):
		return ErrorInfo{Code: ReviewAlreadyExists, Message: "You have already reviewed this story"}
	case strings.Contains(errLower, "bookmark") || strings.Contains(ctx, "bookmark"):
		return ErrorInfo{Code: BookmarkAlreadyExists, Message: "Story already bookmarked"}
	case strings.Contains(errLower, "like") || strings.Contains(ctx, "like"):
		return ErrorInfo{Code: StoryAlreadyLiked, Message: "Story already liked"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "Resource already exists"}
}

func parseCheckConstraintError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "rating") {
		return ErrorInfo{Code: ReviewInvalidRating, Message: "Rating must be between 1 and 5"}
	}
	return ErrorInfo{Code: ValidationInvalidInput, Message: "Invalid input"}
}

func getNotFoundInfo(context string) ErrorInfo {
	ctx := strings.ToLower(context)

	switch {
	case strings.Contains(ctx, "review"):
		return ErrorInfo{Code: ReviewNotFound, Message: "Review not found"}
	case strings.Contains(ctx, "chapter"):
		return ErrorInfo{Code: ChapterNotFound, Message: "Chapter not found"}
	case strings.Contains(ctx, "bookmark"):
		return ErrorInfo{Code: BookmarkNotFound, Message: "Bookmark not found"}
	case strings.Contains(ctx, "story"):
		return ErrorInfo{Code: StoryNotFound, Message: "Story not found"}
	case strings.Contains(ctx, "user"):
		return ErrorInfo{Code: ResourceNotFound, Message: "User not found"}
	}
	return ErrorInfo{Code: ResourceNotFound, Message: "Resource not found"}
}

func getDefaultErrorMessage(context string) string {
	ctx := strings.ToLower(context)

	switch {
	case strings.Contains(ctx, "create"):
		return "Failed to create, please try again"
	case strings.Contains(ctx, "update"):
		return "Failed to update, please try again"
	case strings.Contains(ctx, "delete"):
		return "Failed to delete, please try again"
	}
	return "Something went wrong, please try again"
}

// ParseAndRespond writes the parsed error with the given status
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
