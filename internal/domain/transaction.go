package domain

import "time"

// DateLayout is the wire format of Transaction.Date (DD.MM.YYYY).
const DateLayout = "02.01.2006"

// Transaction represents one expense line of an analysed statement.
// Replenishments never appear here, so Amount is always positive.
type Transaction struct {
	Date        string  `json:"date"`        // DD.MM.YYYY
	Amount      float64 `json:"amount"`      // > 0
	Description string  `json:"description"` // merchant or service text
	Category    string  `json:"category"`    // matches one Category.Name of the record
}

// Time parses Date. The zero time is returned for malformed dates.
func (t Transaction) Time() time.Time {
	ts, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}
	}
	return ts
}
