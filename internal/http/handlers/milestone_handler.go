package handlers

import (
	"errors"

	"github.com/freelance-escrow/backend/internal/http/dto"
	"github.com/freelance-escrow/backend/internal/ledger"
	"github.com/freelance-escrow/backend/internal/middleware"
	"github.com/freelance-escrow/backend/internal/models"
	"github.com/freelance-escrow/backend/internal/repositories"
	"github.com/freelance-escrow/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type MilestoneHandler struct {
	escrowService *services.EscrowService
	log           *zap.Logger
}

func NewMilestoneHandler(escrowService *services.EscrowService, log *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{escrowService: escrowService, log: log}
}

// CreateMilestone locks a condition-backed escrow for one milestone.
// POST /api/milestone/create
func (h *MilestoneHandler) CreateMilestone(c *fiber.Ctx) error {
	var req dto.CreateMilestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	m, err := h.escrowService.CreateMilestone(c.Context(),
		ledger.NewCredential(req.EmployerSeed), req.FreelancerAddress, req.AmountDrops)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.MilestoneResponse{
		Success: true,
		Milestone: dto.CreatedMilestone{
			Status:        m.Status,
			EscrowTxHash:  m.EscrowTxHash,
			OwnerAddress:  m.OwnerAddress,
			OfferSequence: m.OfferSequence,
		},
	})
}

// ApproveMilestone releases a locked escrow by revealing its fulfillment.
// POST /api/milestone/approve
func (h *MilestoneHandler) ApproveMilestone(c *fiber.Ctx) error {
	var req dto.ApproveMilestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	res, err := h.escrowService.ApproveMilestone(c.Context(),
		ledger.NewCredential(req.EmployerSeed), req.OwnerAddress, req.OfferSequence)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(dto.MilestoneResponse{
		Success: true,
		Milestone: dto.ReleasedMilestone{
			Status: models.MilestoneStatusReleased,
			TxHash: res.ReleaseTxHash,
		},
	})
}

// ListMilestones returns all milestones, newest first.
// GET /api/milestones
func (h *MilestoneHandler) ListMilestones(c *fiber.Ctx) error {
	milestones, err := h.escrowService.ListMilestones(c.Context())
	if err != nil {
		h.log.Error("failed to list milestones", zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "internal error")
	}
	if milestones == nil {
		milestones = []*models.Milestone{}
	}
	return c.JSON(dto.MilestoneListResponse{Milestones: milestones})
}

// serviceError maps the error taxonomy onto HTTP statuses. The message
// distinguishes "nothing happened, retry" from "ledger may have changed
// state" for the caller.
func (h *MilestoneHandler) serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotReleasable):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, repositories.ErrDuplicateMilestone):
		h.log.Error("milestone tracking inconsistency", zap.Error(err))
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrSequenceUnavailable):
		h.log.Error("escrow settled but untrackable", zap.Error(err))
		return errorJSON(c, fiber.StatusBadGateway, err.Error())
	case errors.Is(err, ledger.ErrSubmissionFailed):
		return errorJSON(c, fiber.StatusBadGateway, err.Error())
	default:
		h.log.Error("milestone operation failed", zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "internal error")
	}
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{
		Error:     msg,
		RequestID: middleware.GetRequestID(c),
	})
}
