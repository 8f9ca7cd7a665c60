package repository

import (
	"github.com/emontalvo/tienda-storefront/internal/config"
)

// Repositories bundles the store and every per-aggregate repository so main
// wires a single value.
type Repositories struct {
	Store    *Store
	User     UserRepository
	Category CategoryRepository
	Product  ProductRepository
	Cart     CartRepository
	Order    OrderRepository
	Payment  PaymentRepository
}

func New(cfg *config.Config) (*Repositories, error) {

	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Store:    store,
		User:     NewUserRepo(store.DB),
		Category: NewCategoryRepo(store.DB),
		Product:  NewProductRepo(store.DB),
		Cart:     NewCartRepo(store.DB),
		Order:    NewOrderRepository(store),
		Payment:  NewPaymentRepository(store.DB),
	}, nil
}

func (r *Repositories) Close() error {
	return r.Store.Close()
}
