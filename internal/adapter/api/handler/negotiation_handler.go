package handler

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/usecase"
	"b2bmarket/pkg/errors"
	"b2bmarket/pkg/response"
	"b2bmarket/pkg/utils"
)

type NegotiationHandler struct {
	negotiationUseCase *usecase.NegotiationUseCase
}

func NewNegotiationHandler(negotiationUseCase *usecase.NegotiationUseCase) *NegotiationHandler {
	return &NegotiationHandler{
		negotiationUseCase: negotiationUseCase,
	}
}

type createNegotiationRequest struct {
	ProductID      string           `json:"product_id" validate:"required"`
	InitialMessage string           `json:"initial_message" validate:"max=2000"`
	ProposedPrice  *decimal.Decimal `json:"proposed_price"`
	ShopID         string           `json:"shop_id"`
}

type sendNegotiationMessageRequest struct {
	Body          string           `json:"body" validate:"max=2000"`
	ProposedPrice *decimal.Decimal `json:"proposed_price"`
}

type updateNegotiationStatusRequest struct {
	Status        string           `json:"status" validate:"required"`
	Message       string           `json:"message" validate:"max=2000"`
	ProposedPrice *decimal.Decimal `json:"proposed_price"`
}

func (h *NegotiationHandler) CreateNegotiation(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req createNegotiationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	negotiation, err := h.negotiationUseCase.CreateNegotiation(c.Request().Context(), caller, usecase.CreateNegotiationInput{
		ProductID:      req.ProductID,
		InitialMessage: req.InitialMessage,
		ProposedPrice:  req.ProposedPrice,
		ShopID:         req.ShopID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, negotiation)
}

func (h *NegotiationHandler) ListNegotiations(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c)
	negotiations, total, err := h.negotiationUseCase.ListNegotiations(c.Request().Context(), caller, usecase.ListNegotiationsInput{
		Status: c.QueryParam("status"),
		Page:   pagination.Page,
		Limit:  pagination.PageSize,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, negotiations, total, pagination.Page, pagination.PageSize)
}

func (h *NegotiationHandler) GetNegotiation(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	negotiation, err := h.negotiationUseCase.GetNegotiationByID(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, negotiation)
}

func (h *NegotiationHandler) SendMessage(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendNegotiationMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.negotiationUseCase.SendMessage(c.Request().Context(), caller, c.Param("id"), usecase.SendNegotiationMessageInput{
		Body:          req.Body,
		ProposedPrice: req.ProposedPrice,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *NegotiationHandler) GetMessages(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	newestFirst := false
	switch strings.ToLower(c.QueryParam("order")) {
	case "", "asc":
	case "desc":
		newestFirst = true
	default:
		return response.Error(c, errors.BadRequest("order must be asc or desc", nil))
	}

	pagination := utils.GetPaginationParams(c)
	messages, total, err := h.negotiationUseCase.GetMessages(c.Request().Context(), caller, c.Param("id"), usecase.ListMessagesInput{
		Page:        pagination.Page,
		Limit:       pagination.PageSize,
		NewestFirst: newestFirst,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, pagination.Page, pagination.PageSize)
}

func (h *NegotiationHandler) MarkAsRead(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	marked, err := h.negotiationUseCase.MarkAsRead(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessMessage(c, "Negotiation marked as read", map[string]int{"marked": marked})
}

func (h *NegotiationHandler) UpdateStatus(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req updateNegotiationStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	negotiation, err := h.negotiationUseCase.UpdateStatus(c.Request().Context(), caller, c.Param("id"), usecase.UpdateNegotiationStatusInput{
		Status:        entity.NegotiationStatus(strings.ToUpper(req.Status)),
		Message:       req.Message,
		ProposedPrice: req.ProposedPrice,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, negotiation)
}
