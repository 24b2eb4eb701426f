package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// クライアントに返すエラーコード
const (
	CodeValidation        = "validation_error"
	CodeNoFieldsProvided  = "no_fields_provided"
	CodeNotFound          = "not_found"
	CodeProductNotFound   = "product_not_found"
	CodeInsufficientStock = "insufficient_stock"
	CodeDuplicateSKU      = "duplicate_sku"
	CodeProductReferenced = "product_referenced"
	CodeInternal          = "internal_error"
)

// 入力項目ごとのエラー（pathは "items.0.qty" 形式）
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// クライアント向けのエラー。これ以外のerrorはhandlerで500になる。
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details []FieldError
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func NewHTTPError(status int, code string, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func NewValidationError(details []FieldError) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: "Validation error",
		Details: details,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// errのコードがcodeか
func HasCode(err error, code string) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Code == code
}

func notFound(what string) error {
	return NewHTTPError(http.StatusNotFound, CodeNotFound, what+" not found")
}

// 入力チェックの結果をためる
type fieldErrors []FieldError

func (f *fieldErrors) add(path string, message string) {
	*f = append(*f, FieldError{Path: path, Message: message})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return NewValidationError(f)
}
