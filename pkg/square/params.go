package square

import (
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

func (p CheckoutLinkParams) toSquareRequest(locationID, redirectURL, idempotencyKey string) *sqcheckout.CreatePaymentLinkRequest {
	lineItems := make([]*sq.OrderLineItem, 0, len(p.Items))
	for _, item := range p.Items {
		lineItems = append(lineItems, &sq.OrderLineItem{
			Name:           ptrString(item.Name),
			Quantity:       fmt.Sprintf("%d", item.Quantity),
			BasePriceMoney: moneyPtr(item.UnitPriceCents, p.Currency),
		})
	}

	order := &sq.Order{
		LocationID: locationID,
		LineItems:  lineItems,
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		order.ReferenceID = ptrString(trimmed)
	}

	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		Order:          order,
	}
	if trimmed := strings.TrimSpace(redirectURL); trimmed != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{
			RedirectURL: ptrString(trimmed),
		}
	}
	return req
}
