package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adsales/db"
	"adsales/pipeline"
)

const downloadFilename = "predictions.csv"

type batchResponse struct {
	DownloadID  string     `json:"download_id"`
	DownloadURL string     `json:"download_url"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	RowCount    int        `json:"row_count"`
	Predictions []float64  `json:"predictions"`
}

type singleResponse struct {
	Prediction float64  `json:"prediction"`
	Display    string   `json:"display"`
	Defaulted  []string `json:"defaulted"`
}

func (a *API) handleBatch(w http.ResponseWriter, r *http.Request) {
	out, id, err := a.predictUpload(r)
	if err != nil {
		a.respondFailure(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		a.writeCSV(w, out.Table)
		return
	}
	respondJSON(w, http.StatusOK, batchResponse{
		DownloadID:  id,
		DownloadURL: downloadURL(id),
		Columns:     out.Table.Columns,
		Rows:        out.Table.Rows,
		RowCount:    out.Table.Len(),
		Predictions: out.Predictions,
	})
}

func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	table, ok := a.downloads.Get(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, "prediction result not found or expired")
		return
	}
	a.writeCSV(w, table)
}

func (a *API) handleSingle(w http.ResponseWriter, r *http.Request) {
	var values map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.respondFailure(w, r, err)
			return
		}
		respondError(w, http.StatusBadRequest, "request body must be a JSON object of feature values")
		return
	}

	resp, err := a.predictSingle(r.Context(), values)
	if err != nil {
		a.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// predictUpload 对上传的表格打分，并以返回的ID缓存结果供下载
func (a *API) predictUpload(r *http.Request) (*pipeline.Output, string, error) {
	table, err := a.readUpload(r)
	if err != nil {
		return nil, "", err
	}

	out, err := a.service.PredictBatch(table)
	a.recordRun(r.Context(), pipeline.ModeBatch, table.Len(), err, nil)
	if err != nil {
		return nil, "", err
	}

	id := uuid.NewString()
	a.downloads.Add(id, out.Table)
	return out, id, nil
}

func (a *API) predictSingle(ctx context.Context, values map[string]float64) (*singleResponse, error) {
	record, err := a.service.NewRecord(values)
	if err != nil {
		return nil, err
	}

	prediction, err := a.service.PredictRecord(record)
	if err != nil {
		a.recordRun(ctx, pipeline.ModeSingle, 1, err, nil)
		return nil, err
	}
	a.recordRun(ctx, pipeline.ModeSingle, 1, nil, &prediction)

	defaulted := record.Defaulted()
	if defaulted == nil {
		defaulted = []string{}
	}
	return &singleResponse{
		Prediction: prediction,
		Display:    pipeline.FormatPrediction(prediction),
		Defaulted:  defaulted,
	}, nil
}

// readUpload 读取multipart表单的file字段或原始CSV请求体
// 查询参数charset优先于表单字段和媒体类型参数
func (a *API) readUpload(r *http.Request) (*pipeline.Table, error) {
	opts := pipeline.ReadOptions{Charset: r.URL.Query().Get("charset")}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: missing or invalid content type", errBadUpload)
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(a.maxUpload); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", errBadUpload, err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: form field \"file\" is required", errBadUpload)
		}
		defer file.Close()
		if opts.Charset == "" {
			opts.Charset = r.FormValue("charset")
		}
		return pipeline.ReadCSV(file, opts)
	case "text/csv", "application/csv", "text/plain":
		if opts.Charset == "" {
			opts.Charset = params["charset"]
		}
		return pipeline.ReadCSV(r.Body, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", errBadUpload, mediaType)
	}
}

func (a *API) recordRun(ctx context.Context, mode string, rows int, err error, prediction *float64) {
	if a.history == nil {
		return
	}
	run := db.Run{Mode: mode, Rows: rows, Status: pipeline.Status(err), Prediction: prediction}
	var missing *pipeline.MissingColumnsError
	if errors.As(err, &missing) {
		run.Missing = missing.Missing
	}
	if _, err := a.history.RecordRun(ctx, run); err != nil {
		a.logger.Warn("failed to record prediction run", zap.Error(err))
	}
}

func (a *API) writeCSV(w http.ResponseWriter, table *pipeline.Table) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadFilename))
	if err := pipeline.WriteCSV(w, table); err != nil {
		a.logger.Warn("failed to write CSV response", zap.Error(err))
	}
}

func downloadURL(id string) string {
	return "/api/predict/batch/" + id + "/download"
}
