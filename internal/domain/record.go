package domain

// FinancialRecord is the structured summary of one bank statement.
// It is the contract returned to API callers.
type FinancialRecord struct {
	TotalSpent        float64        `json:"total_spent"`
	ForecastNextMonth float64        `json:"forecast_next_month"`
	Categories        []Category     `json:"categories"`
	Subscriptions     []Subscription `json:"subscriptions"`
	Advice            string         `json:"advice"`
	Transactions      []Transaction  `json:"transactions"`
}

// Category is one spending bucket with its localised names.
type Category struct {
	Name    string  `json:"name"`
	NameRU  string  `json:"name_ru"`
	NameKZ  string  `json:"name_kz"`
	NameEN  string  `json:"name_en"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color"` // six hex digits, no prefix
}

// LocalizedName returns the category name for l, or "" when the record
// carries no name for that locale.
func (c Category) LocalizedName(l Locale) string {
	switch l {
	case LocaleKZ:
		return c.NameKZ
	case LocaleEN:
		return c.NameEN
	default:
		return c.NameRU
	}
}

// Subscription is a recurring service payment.
type Subscription struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// Clone returns a deep copy of r. List fields of the copy are never nil.
func (r *FinancialRecord) Clone() *FinancialRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Categories = append(make([]Category, 0, len(r.Categories)), r.Categories...)
	out.Subscriptions = append(make([]Subscription, 0, len(r.Subscriptions)), r.Subscriptions...)
	out.Transactions = append(make([]Transaction, 0, len(r.Transactions)), r.Transactions...)
	return &out
}

// EnsureLists replaces nil list fields with empty slices so that the record
// always encodes sequences, never null.
func (r *FinancialRecord) EnsureLists() {
	if r.Categories == nil {
		r.Categories = []Category{}
	}
	if r.Subscriptions == nil {
		r.Subscriptions = []Subscription{}
	}
	if r.Transactions == nil {
		r.Transactions = []Transaction{}
	}
}

// HasCategory reports whether name is one of the record's category names.
func (r *FinancialRecord) HasCategory(name string) bool {
	for _, c := range r.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}
