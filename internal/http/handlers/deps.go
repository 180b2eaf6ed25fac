package handlers

import (
	"feedshop/internal/config"
	"feedshop/internal/export"
	"feedshop/internal/services"
)

type Deps struct {
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	AuthHandler      *AuthHandler
	AdminHandler     *AdminHandler
	Gate             services.AdminGate
}

func NewDeps(app *services.App, cfg config.Config) *Deps {
	return &Deps{
		ProductHandler:   &ProductHandler{Catalog: app.Catalog},
		InventoryHandler: &InventoryHandler{Catalog: app.Catalog},
		CartHandler:      &CartHandler{Sessions: app.Sessions},
		OrderHandler: &OrderHandler{
			Sessions: app.Sessions,
			Ledger:   app.Ledger,
			Gate:     app.Gate,
			Shop:     export.Shop{Name: cfg.ShopName, Tagline: cfg.Tagline},
		},
		AuthHandler:  &AuthHandler{Gate: app.Gate},
		AdminHandler: &AdminHandler{Catalog: app.Catalog, Ledger: app.Ledger, Reports: app.Reports},
		Gate:         app.Gate,
	}
}
