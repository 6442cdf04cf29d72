package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/appraisals"
	"avaliar/appraisal-backend/internal/config"
	"avaliar/appraisal-backend/internal/samples"
	"avaliar/appraisal-backend/internal/valuation"
	"avaliar/appraisal-backend/pkg/storage"
)

// Dependencies are the outer resources the API is built on
type Dependencies struct {
	Samples    samples.Repository
	Appraisals appraisals.Repository
	Resolver   valuation.NeighborResolver // nil disables the neighboring tier
	Archiver   storage.Archiver
	Registerer prometheus.Registerer
	Valuation  config.ValuationConfig
	Logger     *zap.Logger
}

// API holds the wired services and handlers
type API struct {
	Engine           *valuation.Engine
	SampleService    *samples.Service
	AppraisalService *appraisals.Service
	SampleHandler    *samples.Handler
	AppraisalHandler *appraisals.Handler
}

// SetupAPI wires repositories, the valuation engine, services and handlers
func SetupAPI(deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cascade := valuation.NewCascade(deps.Samples, deps.Resolver, logger.Named("cascade"),
		valuation.WithMinSamples(deps.Valuation.MinSamples),
		valuation.WithCallTimeout(deps.Valuation.CallTimeout),
	)
	engine := valuation.NewEngine(cascade, valuation.NewHomogenizer(valuation.DefaultTables()), logger.Named("engine"))

	sampleService := samples.NewService(deps.Samples, logger.Named("samples"))
	appraisalService := appraisals.NewService(
		deps.Appraisals,
		engine,
		deps.Archiver,
		appraisals.NewMetrics(deps.Registerer),
		logger.Named("appraisals"),
	)

	return &API{
		Engine:           engine,
		SampleService:    sampleService,
		AppraisalService: appraisalService,
		SampleHandler:    samples.NewHandler(sampleService, logger),
		AppraisalHandler: appraisals.NewHandler(appraisalService, logger),
	}
}

// RegisterRoutes registers every v1 route on the router group
func RegisterRoutes(router *gin.RouterGroup, api *API) {
	api.SampleHandler.RegisterRoutes(router)
	api.AppraisalHandler.RegisterRoutes(router)
}
