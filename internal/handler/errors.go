package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"stockroom/internal/obs"
	"stockroom/internal/usecase"

	"github.com/labstack/echo/v4"
)

// usecase以外で出るコード
const (
	CodeUnauthorized         = "unauthorized"
	CodeForbidden            = "forbidden"
	CodeMethodNotAllowed     = "method_not_allowed"
	CodePayloadTooLarge      = "payload_too_large"
	CodeUnsupportedMediaType = "unsupported_media_type"
)

type ErrorResponse struct {
	Error   string               `json:"error"`
	Code    string               `json:"code"`
	Details []usecase.FieldError `json:"details,omitempty"`
}

// usecaseのHTTPErrorはそのまま返す。それ以外は500にしてログだけに詳細を残す。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Code: he.Code, Details: he.Details})
	}

	obs.Logger.Error("internal error",
		"request_id", requestID(c),
		"method", c.Request().Method,
		"uri", c.Request().RequestURI,
		"err", err,
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: usecase.CodeInternal})
}

// Bindの失敗は400のvalidation_errorに揃える
func bindError(err error) error {
	detail := usecase.FieldError{Path: "body", Message: "must be valid JSON"}

	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		detail = usecase.FieldError{Path: ute.Field, Message: "must be of type " + ute.Type.String()}
	}

	var eh *echo.HTTPError
	if errors.As(err, &eh) && eh.Code == http.StatusUnsupportedMediaType {
		return usecase.NewHTTPError(http.StatusUnsupportedMediaType, CodeUnsupportedMediaType, "Content-Type must be application/json")
	}
	return usecase.NewValidationError([]usecase.FieldError{detail})
}

// echoが自前で返すエラー（ルートなし、405、413、panicなど）も同じ形にする
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var eh *echo.HTTPError
	if !errors.As(err, &eh) {
		_ = writeError(c, err)
		return
	}

	var body ErrorResponse
	switch eh.Code {
	case http.StatusNotFound:
		body = ErrorResponse{Error: "Not found", Code: usecase.CodeNotFound}
	case http.StatusMethodNotAllowed:
		body = ErrorResponse{Error: "Method not allowed", Code: CodeMethodNotAllowed}
	case http.StatusRequestEntityTooLarge:
		body = ErrorResponse{Error: "Request body too large", Code: CodePayloadTooLarge}
	case http.StatusUnauthorized:
		body = ErrorResponse{Error: "Unauthorized", Code: CodeUnauthorized}
	case http.StatusForbidden:
		body = ErrorResponse{Error: "Forbidden", Code: CodeForbidden}
	case http.StatusBadRequest:
		body = ErrorResponse{Error: "Validation error", Code: usecase.CodeValidation}
	default:
		if eh.Code >= http.StatusInternalServerError {
			_ = writeError(c, err)
			return
		}
		body = ErrorResponse{Error: http.StatusText(eh.Code), Code: statusCode(eh.Code)}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(eh.Code)
		return
	}
	_ = c.JSON(eh.Code, body)
}

// 一覧にない4xxはステータス名から作る（429 -> "too_many_requests"）
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "http_error"
	}
	return strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(strings.ToLower(text))
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
