package domain

import "context"

// Repositories bundles the stores touched by multi-document mutations so a
// use case can reach all of them through one transaction.
type Repositories struct {
	Products   ProductRepository
	Categories CategoryRepository
	Carts      CartRepository
	Bills      BillRepository
}

// TxManager runs fn against transaction-bound repositories. If fn returns an
// error every mutation made through r is rolled back; otherwise the set is
// committed as a whole. Multi-line cart adds, bill edit's refund+rebook and
// category reassignment all run under it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(r Repositories) error) error
}
