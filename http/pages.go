package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"adsales/pipeline"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Advertising Sales Prediction</title>
</head>
<body>
<h1>Advertising Sales Prediction App</h1>
<p>Upload a CSV with features ({{join .FeatureNames ", "}}) to predict <strong>Sales</strong>.</p>

<h2>1) Batch prediction (CSV upload)</h2>
<form method="post" action="/predict/batch" enctype="multipart/form-data">
<input type="file" name="file" accept=".csv,text/csv" required>
<button type="submit">Predict</button>
</form>
{{with .BatchError}}<p role="alert">{{.}}</p>{{end}}
{{with .Batch}}
<p>Prediction completed! {{.RowCount}} rows.</p>
<p><a href="{{.DownloadURL}}" download="predictions.csv">Download predictions CSV</a></p>
<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{end}}

<h2>2) Single prediction (manual input)</h2>
<form method="post" action="/predict/single">
{{range .Features}}<p><label>{{.Name}} <input type="number" step="any" name="{{.Name}}" value="{{.Value}}"></label></p>
{{end}}<button type="submit">Predict Sales</button>
</form>
{{with .SingleError}}<p role="alert">{{.}}</p>{{end}}
{{with .Single}}<p>Predicted Sales: <strong>{{.}}</strong></p>{{end}}
</body>
</html>
`

type featureInput struct {
	Name  string
	Value string
}

type batchView struct {
	Columns     []string
	Rows        [][]string
	RowCount    int
	DownloadURL string
}

type pageData struct {
	FeatureNames []string
	Features     []featureInput
	Batch        *batchView
	BatchError   string
	Single       string
	SingleError  string
}

func parsePage() (*template.Template, error) {
	return template.New("index").Funcs(template.FuncMap{"join": strings.Join}).Parse(pageTemplate)
}

func (a *API) newPageData() *pageData {
	names := a.service.Schema().Names()
	features := make([]featureInput, len(names))
	for i, name := range names {
		features[i] = featureInput{Name: name, Value: "0.0"}
	}
	return &pageData{FeatureNames: names, Features: features}
}

func (a *API) renderPage(w http.ResponseWriter, status int, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := a.page.Execute(w, data); err != nil {
		a.logger.Warn("failed to render page", zap.Error(err))
	}
}

func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, http.StatusOK, a.newPageData())
}

func (a *API) handleBatchPage(w http.ResponseWriter, r *http.Request) {
	data := a.newPageData()
	out, id, err := a.predictUpload(r)
	if err != nil {
		status, _ := errorStatus(err)
		data.BatchError = pageMessage(err)
		a.renderPage(w, status, data)
		return
	}

	data.Batch = &batchView{
		Columns:     out.Table.Columns,
		Rows:        out.Table.Rows,
		RowCount:    out.Table.Len(),
		DownloadURL: downloadURL(id),
	}
	a.renderPage(w, http.StatusOK, data)
}

func (a *API) handleSinglePage(w http.ResponseWriter, r *http.Request) {
	data := a.newPageData()
	if err := r.ParseForm(); err != nil {
		data.SingleError = "Could not read the submitted form."
		a.renderPage(w, http.StatusBadRequest, data)
		return
	}

	values := make(map[string]float64, len(data.Features))
	for i, f := range data.Features {
		raw := strings.TrimSpace(r.PostForm.Get(f.Name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			data.SingleError = fmt.Sprintf("%s must be a number.", f.Name)
			a.renderPage(w, http.StatusBadRequest, data)
			return
		}
		values[f.Name] = v
		data.Features[i].Value = raw
	}

	resp, err := a.predictSingle(r.Context(), values)
	if err != nil {
		status, _ := errorStatus(err)
		data.SingleError = pageMessage(err)
		a.renderPage(w, status, data)
		return
	}
	data.Single = resp.Display
	a.renderPage(w, http.StatusOK, data)
}

// pageMessage 表单提交失败时展示给用户的提示
func pageMessage(err error) string {
	var missing *pipeline.MissingColumnsError
	var predErr *pipeline.PredictionError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &missing):
		return "Missing required columns: " + strings.Join(missing.Missing, ", ")
	case errors.As(err, &predErr):
		return "Prediction failed. Check that every feature value is numeric."
	case errors.As(err, &tooLarge):
		return "The uploaded file is too large."
	case errors.Is(err, pipeline.ErrMalformedCSV), errors.Is(err, errBadUpload):
		return "Could not read the uploaded CSV file."
	default:
		return "Something went wrong. Please try again."
	}
}
