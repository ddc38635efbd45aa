package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luxe-funds/luxe_funds/internal/ledger"
	"github.com/luxe-funds/luxe_funds/internal/middleware"
)

// RegisterLedgerRoutes mounts deposit, withdrawal and balance endpoints.
// Verification and the cross-user balance listing are staff only.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	staff := middleware.StaffOnly()

	for _, kind := range []ledger.Kind{ledger.KindDeposit, ledger.KindWithdrawal} {
		grp := r.Group("/" + string(kind) + "s")
		grp.Post("/", h.Create(kind))
		grp.Get("/", h.List(kind))
		grp.Get("/:id", h.Get(kind))
		grp.Put("/:id", h.Update(kind))
		grp.Patch("/:id", h.Update(kind))
		grp.Delete("/:id", h.Delete(kind))
		grp.Post("/:id/verify", staff, h.Verify(kind))
		grp.Post("/:id/unverify", staff, h.Unverify(kind))
	}

	r.Get("/balance", h.Balance)
	r.Get("/balances", staff, h.Balances)
}
