package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"adsales/pipeline"
)

var errBadUpload = errors.New("bad upload")

// respondJSON 先编码再写状态码，编码失败时返回500
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		zap.L().Error("failed to encode JSON", zap.Error(err))
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(payload, '\n'))
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus 将请求错误映射为状态码和响应体
// 预测失败只返回通用信息，细节只写日志
func errorStatus(err error) (int, map[string]interface{}) {
	var missing *pipeline.MissingColumnsError
	var predErr *pipeline.PredictionError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "missing required columns",
			"missing": missing.Missing,
		}
	case errors.As(err, &predErr):
		return http.StatusUnprocessableEntity, map[string]interface{}{"error": "prediction failed"}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, map[string]interface{}{"error": "upload too large"}
	case errors.Is(err, pipeline.ErrMalformedCSV), errors.Is(err, pipeline.ErrUnknownFeature), errors.Is(err, errBadUpload):
		return http.StatusBadRequest, map[string]interface{}{"error": err.Error()}
	default:
		return http.StatusInternalServerError, map[string]interface{}{"error": "internal server error"}
	}
}

func (a *API) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
	}
	respondJSON(w, status, body)
}
