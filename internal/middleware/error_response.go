// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// statusByCode はエラーコードとHTTPステータスの対応表。
// エラーの種別はここを通ってもコードとして保存される。
var statusByCode = map[string]int{
	model.ErrCodeValidationFailed: http.StatusBadRequest,
	model.ErrCodeSlugConflict:     http.StatusConflict,
	model.ErrCodeArticleNotFound:  http.StatusNotFound,
	model.ErrCodeUnauthorized:     http.StatusUnauthorized,
	model.ErrCodeTransientFailure: http.StatusServiceUnavailable,
	model.ErrCodeLookupFailed:     http.StatusInternalServerError,
	model.ErrCodeMalformedRecord:  http.StatusInternalServerError,
}

// StatusForError はエラーに対応するHTTPステータスコードを返す。
// APIError以外のエラーは500になる。
func StatusForError(err error) int {
	if status, ok := statusByCode[model.ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError はエラーを統一フォーマットのHTTPレスポンスに変換して書き込む。
// APIError以外のエラーは詳細を漏らさず一般的な500レスポンスになる。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, StatusForError(err), apiErr)
		return
	}
	WriteInternalServerError(w)
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
