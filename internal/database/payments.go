package database

import (
	"context"

	"github.com/google/uuid"
)

const listPaymentsByPreOrder = `
SELECT id, preorder_id, amount, status, provider_ref, created_at
FROM payments
WHERE preorder_id = $1
ORDER BY created_at
`

func (q *Queries) ListPaymentsByPreOrder(ctx context.Context, preorderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByPreOrder, preorderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.PreorderID, &p.Amount, &p.Status, &p.ProviderRef, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
