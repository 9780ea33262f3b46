package domain

import "github.com/shopspring/decimal"

// GatewayURLs are the redirect and callback targets handed to the gateway.
type GatewayURLs struct {
	CallbackURL    string `json:"callbackUrl"`
	SuccessPageURL string `json:"successPageUrl"`
	FailurePageURL string `json:"failurePageUrl"`
	CancelURL      string `json:"cancelUrl"`
}

// GatewayRequest is the JSON body POSTed to the gateway. Field order and names
// are part of the signed wire format.
type GatewayRequest struct {
	EntityID              string      `json:"entityId"`
	ExternalTransactionID string      `json:"externalTransactionID"`
	Amount                int64       `json:"amount"` // minor units
	Currency              string      `json:"currency"`
	Mode                  string      `json:"mode"` // LIVE or TEST
	Description           string      `json:"description"`
	URLs                  GatewayURLs `json:"urls"`
}

// SignedGatewayRequest is a gateway request together with its serialized body
// and the signature computed over it.
type SignedGatewayRequest struct {
	Path      string
	Body      []byte
	Signature string
	Request   GatewayRequest
}

// GatewayResponse is what the gateway returns for a created checkout.
type GatewayResponse struct {
	StatusCode  int
	CheckoutID  string
	RedirectURL string
	RawBody     []byte
}

// CallbackPayload is the parsed body of an inbound gateway webhook.
type CallbackPayload struct {
	ExternalTransactionID string           `json:"externalTransactionID"`
	ResponseCode          string           `json:"responseCode"`
	ResponseDescription   string           `json:"responseDescription,omitempty"`
	Amount                *decimal.Decimal `json:"amount,omitempty"` // major units as sent by the gateway
	Currency              string           `json:"currency,omitempty"`
}

// CheckoutInput is the validated input of the payment request builder.
type CheckoutInput struct {
	OrderID               string
	AmountMinor           int64
	Currency              string
	Description           string
	ExternalTransactionID string // optional, generated when empty
}

// CheckoutResult is returned to the caller after a successful gateway call.
type CheckoutResult struct {
	Reference   string         `json:"reference"`
	CheckoutURL string         `json:"checkout_url"`
	CheckoutID  string         `json:"checkout_id,omitempty"`
	Signature   string         `json:"signature"`
	Request     GatewayRequest `json:"request"`
}

// SettlementResult reports how an authenticated callback was applied.
type SettlementResult struct {
	OrderID   string           `json:"order_id"`
	Status    OrderStatus      `json:"status"`
	Duplicate bool             `json:"duplicate"`
	Ignored   bool             `json:"ignored,omitempty"` // provider notification with nothing to settle
	Contract  *ServiceContract `json:"contract,omitempty"`
}

// ProviderNotification is an inbound notification from a hosted-checkout
// provider that reports a payment id rather than an outcome (Mercado Pago).
type ProviderNotification struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ProviderPayment is a payment as reported by the provider's API.
type ProviderPayment struct {
	ID                string
	Status            string
	ExternalReference string
	Amount            decimal.Decimal
	Currency          string
}

// ContractNotification is handed to the notification collaborator after a
// contract has been provisioned.
type ContractNotification struct {
	ContractNumber string `json:"contract_number"`
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	ServiceName    string `json:"service_name"`
	PriceMinor     int64  `json:"price_minor"`
	Currency       string `json:"currency"`
	StartDate      string `json:"start_date"` // YYYY-MM-DD
	EndDate        string `json:"end_date"`
	PaymentStatus  string `json:"payment_status"`
}
