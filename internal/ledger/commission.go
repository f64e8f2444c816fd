package ledger

import (
	"github.com/shopspring/decimal"
)

type commissionLedger struct {
	rate  decimal.Decimal
	total decimal.Decimal
}

// split returns floor(price*rate) and the remainder owed to the seller.
func (c *commissionLedger) split(price decimal.Decimal) (commission, proceeds decimal.Decimal) {
	commission = price.Mul(c.rate).Floor()
	return commission, price.Sub(commission)
}

func (c *commissionLedger) credit(amount decimal.Decimal) {
	c.total = c.total.Add(amount)
}

// TotalCommission is the sum of commission credited by every resale so far.
func (l *Ledger) TotalCommission() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.commission.total
}

func (l *Ledger) CommissionRate() decimal.Decimal {
	return l.commission.rate
}

// CommissionFor previews the commission and seller proceeds for a resale at price.
func (l *Ledger) CommissionFor(price decimal.Decimal) (commission, proceeds decimal.Decimal) {
	return l.commission.split(price)
}
