// Package handler はHTTP APIのハンドラーとルーティングを提供する。
//
// 全エンドポイントの応答は統一エンベロープ { data?, msg?, error? } を使用する。
// 成功時はdataまたはmsgを、失敗時はerrorのみを設定する。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/masato/filmnote/internal/model"
)

// envelope は全API応答の統一フォーマット。
type envelope struct {
	Data  any    `json:"data,omitempty"`
	Msg   string `json:"msg,omitempty"`
	Error string `json:"error,omitempty"`
}

// writeData は成功レスポンス（データ付き）を書き込む。
func writeData(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

// writeMsg は成功レスポンス（メッセージのみ）を書き込む。
func writeMsg(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope{Msg: msg})
}

// writeError はエラーレスポンスを書き込む。
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope{Error: message})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// 業務エラー（APIError）は分類に応じた4xxと利用者向けメッセージを返す。
// それ以外のエラーは詳細をログにのみ記録し、汎用の500を返す。
func handleServiceError(w http.ResponseWriter, err error) {
	if apiErr, ok := model.AsAPIError(err); ok {
		writeError(w, apiErr.HTTPStatus(), apiErr.Message)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	internal := model.NewInternalError()
	writeError(w, internal.HTTPStatus(), internal.Message)
}
