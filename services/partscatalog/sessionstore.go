package partscatalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"garagevision-backend/lib/cryptovault"
	"garagevision-backend/lib/scrapers/ad360"
	"garagevision-backend/services/partscatalog/db"
)

// sessionStore adapts the supplier_accounts table to the read-only
// contract the scraper consumes. Ciphertext only leaves the table
// through the vault.
type sessionStore struct {
	qry   *db.Queries
	vault *cryptovault.Vault
}

func (s sessionStore) Load(ctx context.Context, tenantID, supplierID int64) (*ad360.Session, error) {
	account, err := s.qry.GetSupplierAccount(ctx, db.GetSupplierAccountParams{
		TenantID:   tenantID,
		SupplierID: supplierID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier account: %w", err)
	}
	if account.Status != StatusLinked || account.SessionCiphertext == "" {
		return nil, nil
	}

	var session ad360.Session
	if err := s.vault.DecryptJSON(account.SessionCiphertext, &session); err != nil {
		return nil, fmt.Errorf("decrypt session: %w", err)
	}
	return &session, nil
}
