package status

import "errors"

var (
	ErrUnauthorized       = errors.New("access: caller lacks required role")
	ErrLastAdminProtected = errors.New("access: cannot remove the last administrator")
	ErrInvalidAccount     = errors.New("access: account identity is required")
)

var (
	ErrNotFound         = errors.New("ledger: not found")
	ErrFestivalInactive = errors.New("festival: festival is not active")
	ErrSoldOut          = errors.New("festival: no tickets available")
	ErrInvalidSupply    = errors.New("festival: ticket supply must be positive")
	ErrInvalidPrice     = errors.New("price: amount must be a non-negative whole number")
)

var (
	ErrIncorrectPayment = errors.New("payment: tendered amount does not match price")
	ErrNotOwner         = errors.New("ticket: caller is not the owner")
	ErrNotListed        = errors.New("ticket: ticket is not listed for sale")
	ErrSelfPurchase     = errors.New("ticket: buyer already owns the ticket")
)

var (
	ErrFailedPayment         = errors.New("payment: payment failed")
	ErrInsufficientFunds     = errors.New("payment: insufficient funds")
	ErrInsufficientAllowance = errors.New("payment: insufficient allowance")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrLastAdminProtected, "last_admin_protected"},
	{ErrInvalidAccount, "invalid_account"},
	{ErrNotFound, "not_found"},
	{ErrFestivalInactive, "festival_inactive"},
	{ErrSoldOut, "sold_out"},
	{ErrInvalidSupply, "invalid_supply"},
	{ErrInvalidPrice, "invalid_price"},
	{ErrIncorrectPayment, "incorrect_payment"},
	{ErrNotOwner, "not_owner"},
	{ErrNotListed, "not_listed"},
	{ErrSelfPurchase, "self_purchase"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrInsufficientAllowance, "insufficient_allowance"},
	{ErrFailedPayment, "payment_failed"},
}

// Kind names the first ledger error kind err matches, "ok" for nil and
// "internal" for anything unrecognised. Payment causes are reported before
// the generic payment failure they are wrapped in.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
