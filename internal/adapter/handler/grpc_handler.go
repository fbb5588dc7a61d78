package handler

import (
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
	"github.com/rl1809/inventory-metafields/internal/core/service"
)

// HealthService is the grpc.health.v1 service name whose status follows the
// outcome of the last reconciliation.
const HealthService = "inventory.Reconciler"

type GRPCHandler struct {
	health *health.Server
	logger *zerolog.Logger
}

var _ service.RunObserver = (*GRPCHandler)(nil)

func NewGRPCHandler(logger *zerolog.Logger) *GRPCHandler {
	hs := health.NewServer()
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	return &GRPCHandler{health: hs, logger: logger}
}

func (h *GRPCHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)
}

// RunFinished marks the reconciler NOT_SERVING after a failed run until a
// run succeeds again. Cancelled runs leave the status alone.
func (h *GRPCHandler) RunFinished(run domain.Run) {
	switch run.Status {
	case domain.RunStatusSucceeded:
		h.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	case domain.RunStatusFailed:
		h.logger.Warn().Str("run_id", run.ID).Msg("reconciler marked not serving")
		h.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

// Shutdown flips every service to NOT_SERVING ahead of GracefulStop.
func (h *GRPCHandler) Shutdown() {
	h.health.Shutdown()
}
