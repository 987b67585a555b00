package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ChessFlow/internal/domain/models"
	domrepo "ChessFlow/internal/domain/repository"
	"ChessFlow/internal/services/calibration"
	"ChessFlow/internal/usecase"
	xhttp "ChessFlow/pkg/http"
	xlogger "ChessFlow/pkg/logger"
	"ChessFlow/pkg/queue"
)

// PredictionsEchoHandler exposes the prediction pipeline over HTTP.
type PredictionsEchoHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	bench     *usecase.BenchmarkUseCase
	calib     *calibration.Store
	store     domrepo.PredictionStore
	jobs      queue.Publisher
}

func NewPredictionsEchoHandler(
	logger *xlogger.Logger,
	predictor *usecase.Predictor,
	bench *usecase.BenchmarkUseCase,
	calib *calibration.Store,
	store domrepo.PredictionStore,
	jobs queue.Publisher,
) *PredictionsEchoHandler {
	return &PredictionsEchoHandler{
		logger:    logger,
		predictor: predictor,
		bench:     bench,
		calib:     calib,
		store:     store,
		jobs:      jobs,
	}
}

func (h *PredictionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict)
	g.POST("/benchmark", h.Benchmark)
	g.GET("/benchmark/status", h.BenchmarkStatus)
	g.GET("/patterns/similar", h.SimilarPatterns)
	g.GET("/calibration", h.Calibration)
	g.GET("/calibration/history", h.CalibrationHistory)
	g.GET("/health", h.Health)
}

func (h *PredictionsEchoHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if len(req.Moves) == 0 && req.PGN == "" {
		return xhttp.BadRequestResponse(c, "moves or pgn required")
	}

	sample := models.GameSample{
		GameID: uuid.NewString(),
		Moves:  req.Moves,
		PGN:    req.PGN,
	}
	res, err := h.predictor.PredictWithDepth(c.Request().Context(), sample.GameID, sample, req.TruncationMove, req.SearchDepth)
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.Error(err))
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsEchoHandler) Benchmark(c echo.Context) error {
	req := &models.BenchmarkRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.Async {
		payload := usecase.BenchmarkJobPayload{
			RequestID:      uuid.NewString(),
			SampleCount:    req.SampleCount,
			TruncationMove: req.TruncationMove,
			SearchDepth:    req.SearchDepth,
		}
		if err := h.jobs.PublishMessage(c.Request().Context(), usecase.BenchmarkJobType, payload); err != nil {
			h.logger.Error("benchmark enqueue error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.AcceptedResponse(c, map[string]string{"request_id": payload.RequestID})
	}

	res, err := h.bench.RunWithParams(c.Request().Context(), usecase.RunParams{
		SampleCount:    req.SampleCount,
		TruncationMove: req.TruncationMove,
		SearchDepth:    req.SearchDepth,
	})
	if err != nil {
		h.logger.Error("benchmark usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsEchoHandler) BenchmarkStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"phase": string(h.bench.Phase())})
}

func (h *PredictionsEchoHandler) SimilarPatterns(c echo.Context) error {
	req := &models.SimilarPatternsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if len(req.Moves) == 0 && req.PGN == "" {
		return xhttp.BadRequestResponse(c, "moves or pgn required")
	}

	sample := models.GameSample{GameID: uuid.NewString(), Moves: req.Moves, PGN: req.PGN}
	sig, matches, err := h.predictor.SimilarPatterns(sample, req.TruncationMove, req.Limit)
	if err != nil {
		h.logger.Error("similar patterns error", xlogger.Error(err))
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"signature": sig,
		"matches":   matches,
	})
}

func (h *PredictionsEchoHandler) Calibration(c echo.Context) error {
	correct, total := h.calib.GlobalAccuracy()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"archetypes":     h.calib.Snapshots(),
		"global_correct": correct,
		"global_total":   total,
	})
}

func (h *PredictionsEchoHandler) CalibrationHistory(c echo.Context) error {
	since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Now().AddDate(0, 0, -30))
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	offset := xhttp.ParseIntDefault(c.QueryParam("offset"), 0)

	rows, err := h.store.CalibrationHistory(c.Request().Context(), since, limit, offset)
	if err != nil {
		h.logger.Error("calibration history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"since": since,
		"rows":  rows,
	})
}

func (h *PredictionsEchoHandler) Health(c echo.Context) error {
	status := map[string]string{"service": "ok", "storage": "ok"}
	code := http.StatusOK
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			status["storage"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}

var _ xhttp.Handler = (*PredictionsEchoHandler)(nil)
