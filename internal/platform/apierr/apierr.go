// Package apierr is the error model shared by every feature package:
// a machine readable Code plus a human readable message, mapped to HTTP
// status codes by the handlers.
package apierr

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"bookshelf-backend/internal/platform/db"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
	CodeRateLimited     Code = "RATE_LIMITED"
	// 複合操作の途中状態が残った可能性がある。呼び出し側で突き合わせが必要
	CodePartialFailure Code = "PARTIAL_FAILURE"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }
func ErrPartial(msg string) *APIError  { return &APIError{Code: CodePartialFailure, Message: msg} }

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

// FromStore converts an error coming out of the persistence layer.
// APIErrors pass through untouched; driver errors become a generic store
// fault and the cause is only logged.
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var api *APIError
	if errors.As(err, &api) {
		return api
	}
	if errors.Is(err, db.ErrCommitUnknown) {
		log.Printf("[ERROR] %s: %v", op, err)
		return ErrPartial(op + ": commit outcome unknown, reload before retrying")
	}
	if db.IsDuplicateKey(err) {
		return ErrConflict(op + ": duplicate reference number")
	}
	log.Printf("[ERROR] %s: %v", op, err)
	return ErrInternal("store unavailable")
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeRateLimited:
			return http.StatusTooManyRequests
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

type ErrorDTO struct {
	Error *APIError `json:"error"`
}

func Body(code Code, msg string) ErrorDTO {
	return ErrorDTO{Error: &APIError{Code: code, Message: msg}}
}

// BodyFrom は内部エラーの詳細をクライアントに出さない
func BodyFrom(err error) ErrorDTO {
	var api *APIError
	if errors.As(err, &api) {
		return ErrorDTO{Error: api}
	}
	log.Printf("[ERROR] unhandled: %v", err)
	return Body(CodeInternal, "internal error")
}
