package http

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"adsales/db"
	"adsales/pipeline"
)

// APIConfig 处理器依赖配置，History和Metrics可为空
type APIConfig struct {
	Service           *pipeline.Service
	History           *db.History
	Metrics           http.Handler
	Logger            *zap.Logger
	DownloadCacheSize int
	MaxUploadBytes    int64
	AllowedOrigins    []string
}

// API 预测页面、JSON接口和websocket手动录入会话
type API struct {
	service   *pipeline.Service
	downloads *lru.Cache[string, *pipeline.Table]
	history   *db.History
	metrics   http.Handler
	logger    *zap.Logger
	maxUpload int64
	upgrader  websocket.Upgrader
	page      *template.Template
}

func NewAPI(config APIConfig) (*API, error) {
	if config.Service == nil {
		return nil, errors.New("prediction service is required")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.DownloadCacheSize <= 0 {
		config.DownloadCacheSize = 64
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}

	downloads, err := lru.New[string, *pipeline.Table](config.DownloadCacheSize)
	if err != nil {
		return nil, err
	}
	page, err := parsePage()
	if err != nil {
		return nil, err
	}

	origins := config.AllowedOrigins
	return &API{
		service:   config.Service,
		downloads: downloads,
		history:   config.History,
		metrics:   config.Metrics,
		logger:    config.Logger.Named("http"),
		maxUpload: config.MaxUploadBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(origins, origin)
			},
		},
		page: page,
	}, nil
}

func (a *API) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("POST /predict/batch", a.handleBatchPage)
	mux.HandleFunc("POST /predict/single", a.handleSinglePage)

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/schema", a.handleSchema)
	mux.HandleFunc("POST /api/predict/batch", a.handleBatch)
	mux.HandleFunc("GET /api/predict/batch/{id}/download", a.handleDownload)
	mux.HandleFunc("POST /api/predict/single", a.handleSingle)
	mux.HandleFunc("GET /api/ws/predict", a.handleWebSocket)
	mux.HandleFunc("GET /api/history", a.handleHistory)

	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"features":   a.service.Schema().Names(),
		"model_kind": a.service.ModelKind(),
	})
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		respondError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 || l > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = l
	}

	runs, err := a.history.RecentRuns(r.Context(), limit)
	if err != nil {
		a.logger.Error("failed to query history", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
