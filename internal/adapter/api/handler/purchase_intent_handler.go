package handler

import (
	"github.com/labstack/echo/v4"

	"b2bmarket/internal/usecase"
	"b2bmarket/pkg/response"
	"b2bmarket/pkg/utils"
)

type PurchaseIntentHandler struct {
	intentUseCase *usecase.PurchaseIntentUseCase
}

func NewPurchaseIntentHandler(intentUseCase *usecase.PurchaseIntentUseCase) *PurchaseIntentHandler {
	return &PurchaseIntentHandler{
		intentUseCase: intentUseCase,
	}
}

type lineItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type createPurchaseIntentRequest struct {
	LineItems     []lineItemRequest `json:"line_items" validate:"required,min=1,max=100,dive"`
	NegotiationID string            `json:"negotiation_id"`
	Notes         string            `json:"notes" validate:"max=1000"`
}

type cancelPurchaseIntentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *PurchaseIntentHandler) CreatePurchaseIntent(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req createPurchaseIntentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	items := make([]usecase.LineItemInput, len(req.LineItems))
	for i, item := range req.LineItems {
		items[i] = usecase.LineItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	intent, err := h.intentUseCase.CreatePurchaseIntent(c.Request().Context(), caller, usecase.CreatePurchaseIntentInput{
		LineItems:     items,
		NegotiationID: req.NegotiationID,
		Notes:         req.Notes,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, intent)
}

func (h *PurchaseIntentHandler) ListPurchaseIntents(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c)
	intents, total, err := h.intentUseCase.ListPurchaseIntents(c.Request().Context(), caller, usecase.ListPurchaseIntentsInput{
		Status: c.QueryParam("status"),
		Page:   pagination.Page,
		Limit:  pagination.PageSize,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, intents, total, pagination.Page, pagination.PageSize)
}

func (h *PurchaseIntentHandler) GetPurchaseIntent(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	intent, err := h.intentUseCase.GetPurchaseIntent(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, intent)
}

func (h *PurchaseIntentHandler) GetPurchaseIntentByNumber(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	intent, err := h.intentUseCase.GetPurchaseIntentByNumber(c.Request().Context(), caller, c.Param("number"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, intent)
}

func (h *PurchaseIntentHandler) SubmitPurchaseIntent(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	intent, err := h.intentUseCase.SubmitPurchaseIntent(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessMessage(c, "Purchase intent submitted", intent)
}

func (h *PurchaseIntentHandler) AcceptPurchaseIntent(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	intent, err := h.intentUseCase.AcceptPurchaseIntent(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessMessage(c, "Purchase intent accepted", intent)
}

func (h *PurchaseIntentHandler) CancelPurchaseIntent(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req cancelPurchaseIntentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	intent, err := h.intentUseCase.CancelPurchaseIntent(c.Request().Context(), caller, c.Param("id"), req.Reason)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessMessage(c, "Purchase intent cancelled", intent)
}

func (h *PurchaseIntentHandler) GetHistory(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	entries, err := h.intentUseCase.GetHistory(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, entries)
}
