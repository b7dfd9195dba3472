package square

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valcrest-online/valcrest-backend/pkg/config"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
)

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.SquareConfig{Env: "sandbox", LocationID: "L1"}, nil)
	assert.ErrorIs(t, err, errAccessTokenRequired)

	_, err = NewClient(ctx, config.SquareConfig{Env: "sandbox", AccessToken: "tok"}, nil)
	assert.ErrorIs(t, err, errLocationRequired)

	_, err = NewClient(ctx, config.SquareConfig{Env: "staging", AccessToken: "tok", LocationID: "L1"}, nil)
	assert.ErrorIs(t, err, errInvalidSquareEnv)

	client, err := NewClient(ctx, config.SquareConfig{Env: "", AccessToken: "tok", LocationID: "L1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, sandboxEnv, client.Environment())
}

func TestCheckoutLinkParamsToSquareRequest(t *testing.T) {
	params := CheckoutLinkParams{
		Items: []CheckoutItem{
			{Name: "Dragon Mount", Quantity: 1, UnitPriceCents: 2500},
			{Name: "Mystic Skin", Quantity: 2, UnitPriceCents: 990},
		},
		Currency:    "eur",
		ReferenceID: "order-7",
	}

	req := params.toSquareRequest("LOC1", "https://shop.valcrest.online/return", "idem-1")

	require.NotNil(t, req.Order)
	assert.Equal(t, "LOC1", req.Order.LocationID)
	require.Len(t, req.Order.LineItems, 2)
	assert.Equal(t, "Dragon Mount", *req.Order.LineItems[0].Name)
	assert.Equal(t, "2", req.Order.LineItems[1].Quantity)
	assert.Equal(t, int64(990), *req.Order.LineItems[1].BasePriceMoney.Amount)
	assert.Equal(t, "EUR", string(*req.Order.LineItems[0].BasePriceMoney.Currency))
	assert.Equal(t, "order-7", *req.Order.ReferenceID)
	require.NotNil(t, req.CheckoutOptions)
	assert.Equal(t, "https://shop.valcrest.online/return", *req.CheckoutOptions.RedirectURL)
}

func TestEnsureIdempotencyKey(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "given", c.ensureIdempotencyKey("checkout.link", "given"))

	generated := c.ensureIdempotencyKey("checkout.link", " ")
	assert.True(t, strings.HasPrefix(generated, "checkout.link-"))
}

func TestCreateCheckoutLinkRejectsEmptyCart(t *testing.T) {
	c := &Client{}
	_, err := c.CreateCheckoutLink(context.Background(), CheckoutLinkParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
