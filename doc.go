// Package ledger is a transactional ledger: accounts with non-negative
// balances, atomic transfers between them and an append-only transfer log.
//
// A Service is backed either by a Bun database (postgres, mysql or sqlite)
// through NewService or NewServiceWithDB, or by process memory through
// NewMemoryService:
//
//	model.Register()
//	if _, err := database.InitDB(ctx, cfg); err != nil {
//		return err
//	}
//	svc := ledger.NewService()
//	rec, err := svc.Transfer(ctx, 1, 2, decimal.NewFromInt(200))
//	if errors.Is(err, engine.ErrInsufficientFunds) {
//		...
//	}
package ledger
