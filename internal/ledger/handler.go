package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/luxe-funds/luxe_funds/internal/policy"
)

// Handler exposes the record lifecycle and balance views over HTTP. Each
// route factory binds a Kind so deposits and withdrawals share one
// implementation.
type Handler struct {
	service *Service
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type recordResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Amount    string    `json:"amount"`
	Verified  bool      `json:"is_verified"`
	CreatedAt time.Time `json:"created_at"`
}

type balanceResponse struct {
	UserID    string    `json:"user_id"`
	Amount    string    `json:"amount"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func toRecordResponse(rec Record) recordResponse {
	return recordResponse{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Kind:      string(rec.Kind),
		Amount:    rec.Amount.StringFixed(2),
		Verified:  rec.Verified,
		CreatedAt: rec.CreatedAt,
	}
}

func toBalanceResponse(bal Balance) balanceResponse {
	return balanceResponse{
		UserID:    bal.UserID,
		Amount:    bal.Amount.StringFixed(2),
		UpdatedAt: bal.UpdatedAt,
	}
}

// Create handles POST /{deposits,withdrawals}.
func (h *Handler) Create(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req amountRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		rec, err := h.service.Create(c.UserContext(), actorFrom(c), kind, req.Amount)
		if err != nil {
			return mapError(err)
		}
		return c.Status(http.StatusCreated).JSON(toRecordResponse(rec))
	}
}

// List handles GET /{deposits,withdrawals}. Staff may pass ?user_id= to view
// another user's records; ?day=, ?month=, and ?year= narrow by creation date.
func (h *Handler) List(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := RecordFilter{
			Day:   c.QueryInt("day"),
			Month: c.QueryInt("month"),
			Year:  c.QueryInt("year"),
		}
		recs, err := h.service.List(c.UserContext(), actorFrom(c), kind, c.Query("user_id"), filter)
		if err != nil {
			return mapError(err)
		}
		out := make([]recordResponse, 0, len(recs))
		for _, rec := range recs {
			out = append(out, toRecordResponse(rec))
		}
		return c.Status(http.StatusOK).JSON(out)
	}
}

// Get handles GET /{deposits,withdrawals}/:id.
func (h *Handler) Get(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := h.service.Get(c.UserContext(), actorFrom(c), kind, c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
	}
}

// Update handles PATCH /{deposits,withdrawals}/:id.
func (h *Handler) Update(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req amountRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		rec, err := h.service.Update(c.UserContext(), actorFrom(c), kind, c.Params("id"), req.Amount)
		if err != nil {
			return mapError(err)
		}
		return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
	}
}

// Delete handles DELETE /{deposits,withdrawals}/:id.
func (h *Handler) Delete(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.service.Delete(c.UserContext(), actorFrom(c), kind, c.Params("id")); err != nil {
			return mapError(err)
		}
		return c.SendStatus(http.StatusNoContent)
	}
}

// Verify handles POST /{deposits,withdrawals}/:id/verify.
func (h *Handler) Verify(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := h.service.Verify(c.UserContext(), actorFrom(c), kind, c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
	}
}

// Unverify handles POST /{deposits,withdrawals}/:id/unverify.
func (h *Handler) Unverify(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := h.service.Unverify(c.UserContext(), actorFrom(c), kind, c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
	}
}

// Balance handles GET /balance. Staff may pass ?user_id=.
func (h *Handler) Balance(c *fiber.Ctx) error {
	bal, err := h.service.Balance(c.UserContext(), actorFrom(c), c.Query("user_id"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toBalanceResponse(bal))
}

// Balances handles GET /balances (staff only).
func (h *Handler) Balances(c *fiber.Ctx) error {
	bals, err := h.service.Balances(c.UserContext(), actorFrom(c))
	if err != nil {
		return mapError(err)
	}
	out := make([]balanceResponse, 0, len(bals))
	for _, bal := range bals {
		out = append(out, toBalanceResponse(bal))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func actorFrom(c *fiber.Ctx) policy.Actor {
	uid, _ := c.Locals(policy.LocalUserID).(string)
	staff, _ := c.Locals(policy.LocalStaff).(bool)
	return policy.Actor{UserID: uid, Staff: staff}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadyVerified):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
