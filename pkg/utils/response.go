package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// DefaultJSONBodyLimit 请求体大小上限，截图的 data URL 也需要放得下。
const DefaultJSONBodyLimit int64 = 8 << 20

var ErrInvalidBody = errors.New("invalid request body")

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// DecodeJSON 读取有大小上限的 JSON 请求体；失败时已写出 400 响应并返回 ErrInvalidBody。
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, DefaultJSONBodyLimit)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			RespondError(w, http.StatusBadRequest, ErrInvalidBody.Error())
		}
		return ErrInvalidBody
	}
	return nil
}
