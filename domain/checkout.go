package domain

// CheckoutRequest is what a caller submits to start a checkout.
type CheckoutRequest struct {
	BasketUUID   string
	Email        string
	PaymentToken string
	Address      Address
}

// CheckoutCommand is the input of one orchestrated checkout attempt. The basket
// items must have their products loaded.
type CheckoutCommand struct {
	Basket       *Basket
	Order        *Order
	Email        string
	PaymentToken string
	Address      Address
}
