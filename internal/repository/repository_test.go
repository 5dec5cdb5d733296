package repository

import (
	"testing"
	"time"

	"github.com/IvanGLS/library-service-project/internal/model"

	"github.com/stretchr/testify/require"
)

// Expiry must be keyed to the checkout session: a pending payment whose
// session was never created stays retryable and must not be swept up.
func TestExpireStaleQuery_SkipsPaymentsWithoutSession(t *testing.T) {
	t.Parallel()

	cutoff := time.Date(2022, 3, 5, 12, 0, 0, 0, time.UTC)
	q, args, err := expireStaleQuery(cutoff)
	require.NoError(t, err)

	require.Equal(t,
		"UPDATE payments SET status = $1 WHERE status = $2 AND session_id <> $3 AND created_at < $4 "+
			"returning id, payment_uid, borrowing_id, status, type, session_id, session_url, money_to_pay, created_at",
		q)
	require.Equal(t, []interface{}{model.PaymentExpired, model.PaymentPending, "", cutoff}, args)
}
