package webhook

import "encoding/json"

// Envelope is the provider's webhook body: type, event id, and an
// event-specific payload.
type Envelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// EventKind is the closed set of event types this pipeline understands.
// Routing switches over EventKind rather than the raw string so a new kind
// cannot be added without a handler decision.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCustomerUpdated
	EventTransferUpdated
	EventCardTransactionCreated
	EventVirtualAccountDepositCreated
	EventWalletTransactionCreated
	EventWalletTransactionConfirmed
)

func ParseEventKind(eventType string) EventKind {
	switch eventType {
	case "customer.updated":
		return EventCustomerUpdated
	case "transfer.updated":
		return EventTransferUpdated
	case "card.transaction.created":
		return EventCardTransactionCreated
	case "virtual_account.deposit.created":
		return EventVirtualAccountDepositCreated
	case "wallet.transaction.created":
		return EventWalletTransactionCreated
	case "wallet.transaction.confirmed":
		return EventWalletTransactionConfirmed
	default:
		return EventUnknown
	}
}

func (k EventKind) String() string {
	switch k {
	case EventCustomerUpdated:
		return "customer.updated"
	case EventTransferUpdated:
		return "transfer.updated"
	case EventCardTransactionCreated:
		return "card.transaction.created"
	case EventVirtualAccountDepositCreated:
		return "virtual_account.deposit.created"
	case EventWalletTransactionCreated:
		return "wallet.transaction.created"
	case EventWalletTransactionConfirmed:
		return "wallet.transaction.confirmed"
	default:
		return "unknown"
	}
}
