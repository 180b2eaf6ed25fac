package services

import "feedshop/internal/domain"

// ProductView is a product as shown to shoppers, with its stock label.
type ProductView struct {
	domain.Product
	Availability domain.Availability `json:"availability"`
}

// Availability converts stock to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (c *Catalog) Availability(id string) (domain.Availability, error) {
	p, err := c.Get(id)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.AvailabilityOf(p.Stock), nil
}

func (c *Catalog) View(id string) (ProductView, error) {
	p, err := c.Get(id)
	if err != nil {
		return ProductView{}, err
	}
	return ProductView{Product: p, Availability: domain.AvailabilityOf(p.Stock)}, nil
}

func (c *Catalog) Views() []ProductView {
	products := c.List()
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, ProductView{Product: p, Availability: domain.AvailabilityOf(p.Stock)})
	}
	return out
}
