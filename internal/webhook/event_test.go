package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEventKind(t *testing.T) {
	known := []EventKind{
		EventCustomerUpdated,
		EventTransferUpdated,
		EventCardTransactionCreated,
		EventVirtualAccountDepositCreated,
		EventWalletTransactionCreated,
		EventWalletTransactionConfirmed,
	}
	for _, kind := range known {
		assert.Equal(t, kind, ParseEventKind(kind.String()))
	}

	assert.Equal(t, EventUnknown, ParseEventKind("customer.created"))
	assert.Equal(t, EventUnknown, ParseEventKind(""))
	assert.Equal(t, "unknown", EventUnknown.String())
}
