package api

import (
	"context"
	"net/http"
	"strings"

	"FinFolio/internal/domain/models"
	"FinFolio/internal/usecase"
	xhttp "FinFolio/pkg/http"
	xlogger "FinFolio/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PortfolioGenerator runs one advisory pipeline for a request text.
type PortfolioGenerator interface {
	Generate(ctx context.Context, request string) *usecase.Result
}

// PortfolioEchoHandler serves the portfolio API.
type PortfolioEchoHandler struct {
	logger *xlogger.Logger
	svc    PortfolioGenerator
}

func NewPortfolioEchoHandler(logger *xlogger.Logger, svc PortfolioGenerator) *PortfolioEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &PortfolioEchoHandler{logger: logger, svc: svc}
}

func (h *PortfolioEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.POST("/portfolio", h.Portfolio)
}

func (h *PortfolioEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Portfolio runs the pipeline synchronously. Failed runs answer 422 and
// aborted runs 500; both still carry the run payload with its error report.
func (h *PortfolioEchoHandler) Portfolio(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if strings.TrimSpace(req.Request) == "" &&
		(strings.TrimSpace(req.TimeHorizon) == "" || strings.TrimSpace(req.RiskTolerance) == "") {
		return xhttp.AppErrorResponse(c,
			xhttp.BadRequestError("either request or both time_horizon and risk_tolerance are required"))
	}

	res := h.svc.Generate(c.Request().Context(), req.Text())
	if res == nil || res.State == nil {
		h.logger.Error("portfolio run returned no result")
		return xhttp.AppErrorResponse(c, xhttp.InternalError("portfolio run returned no result"))
	}

	resp := res.Response()
	h.logger.Info("portfolio run finished",
		xlogger.String("run_id", resp.RunID),
		xlogger.String("status", resp.Status),
		xlogger.String("step", resp.Step),
	)
	switch res.Status {
	case usecase.RunStatusSuccess:
		return xhttp.SuccessResponse(c, resp)
	case usecase.RunStatusFailed:
		return xhttp.FailedRunResponse(c, resp)
	default:
		return xhttp.DataResponse(c, http.StatusInternalServerError, resp)
	}
}
