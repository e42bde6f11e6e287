package checkout

import "errors"

var (
	// ErrEmptyCart rejects checkout with no line items. No writes happen.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidAddress rejects a shipping address missing required fields.
	ErrInvalidAddress = errors.New("shipping address is incomplete")
	// ErrAlreadyFinalized marks an idempotent no-op: the order's payment axis
	// was already terminal when a confirmation signal arrived. Not a failure.
	ErrAlreadyFinalized = errors.New("payment already finalized")
	// ErrVerificationFailed means the gateway did not report the transaction as
	// successful. The order must not be marked paid.
	ErrVerificationFailed = errors.New("payment could not be confirmed")
)
