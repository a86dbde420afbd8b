// Package ledger — handlers.go отдаёт операции учёта по HTTP.
package ledger

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/brusliste/internal/common"
	"serotonyl.ru/brusliste/internal/httpx"
)

// Handler — HTTP-обработчики /api/people, /api/quickbuy и /api/transactions.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчики учёта.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает маршруты на группу /api.
// Чтение открыто, изменения проходят через guard (проверку API-ключа).
func (h *Handler) Register(api *gin.RouterGroup, guard gin.HandlerFunc) {
	api.GET("/people", h.ListPeople)
	api.GET("/transactions", h.ListTransactions)

	api.POST("/people", guard, h.UpsertPerson)
	api.POST("/people/:id/settle", guard, h.SettlePerson)
	api.DELETE("/people/:id", guard, h.RemovePerson)
	api.POST("/quickbuy", guard, h.QuickBuy)
	api.PATCH("/transactions/:id", guard, h.RelabelTransaction)
}

type upsertPersonRequest struct {
	Name         string  `json:"name"`
	DeltaUnits   *int64  `json:"delta_units"`
	BeverageType *string `json:"beverage_type"`
}

type beverageTypeRequest struct {
	BeverageType *string `json:"beverage_type"`
}

// relabelRequest требует поле beverage_type: {} не стирает напиток молча,
// это делает только явный null.
type relabelRequest struct {
	BeverageType nullableString `json:"beverage_type"`
}

// nullableString отличает отсутствующее поле от null.
type nullableString struct {
	Set   bool
	Value *string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// ListPeople — GET /api/people
func (h *Handler) ListPeople(c *gin.Context) {
	people, err := h.service.ListPeople(c.Request.Context())
	if err != nil {
		httpx.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, people)
}

// UpsertPerson — POST /api/people
// Отвечает полным списком людей, уже с учётом изменения.
func (h *Handler) UpsertPerson(c *gin.Context) {
	var req upsertPersonRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	if req.DeltaUnits == nil {
		httpx.AbortWithError(c, common.NewValidationError("delta_units", "поле обязательно"))
		return
	}

	people, err := h.service.UpsertPurchase(c.Request.Context(), req.Name, *req.DeltaUnits, req.BeverageType)
	if err != nil {
		httpx.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, people)
}

// SettlePerson — POST /api/people/:id/settle
func (h *Handler) SettlePerson(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}

	if _, err := h.service.SettlePayment(c.Request.Context(), id); err != nil {
		httpx.AbortWithError(c, err)
		return
	}
	h.ListPeople(c)
}

// RemovePerson — DELETE /api/people/:id
func (h *Handler) RemovePerson(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.RemovePerson(c.Request.Context(), id); err != nil {
		httpx.AbortWithError(c, err)
		return
	}
	h.ListPeople(c)
}

// QuickBuy — POST /api/quickbuy
// Тело необязательно: без него покупка записывается без напитка.
func (h *Handler) QuickBuy(c *gin.Context) {
	var req beverageTypeRequest
	if !httpx.BindOptionalJSON(c, &req) {
		return
	}

	t, err := h.service.QuickBuy(c.Request.Context(), req.BeverageType)
	if err != nil {
		httpx.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// RelabelTransaction — PATCH /api/transactions/:id
func (h *Handler) RelabelTransaction(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var req relabelRequest
	if !httpx.BindJSON(c, &req) {
		return
	}
	if !req.BeverageType.Set {
		httpx.AbortWithError(c, common.NewValidationError("beverage_type", "поле beverage_type обязательно (null очищает напиток)"))
		return
	}

	t, err := h.service.RelabelTransaction(c.Request.Context(), id, req.BeverageType.Value)
	if err != nil {
		httpx.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ListTransactions — GET /api/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	txs, err := h.service.ListTransactions(c.Request.Context())
	if err != nil {
		httpx.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
