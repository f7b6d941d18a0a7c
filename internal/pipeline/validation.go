package pipeline

import (
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/funster-a/hackathon-backend/internal/domain"
)

// DroppedTransaction is a transaction the validator refused to keep.
type DroppedTransaction struct {
	Index  int
	Reason string
}

// ValidateRecord checks a recovered JSON value and decodes it into a
// FinancialRecord. It never panics: any input yields either a record or a
// *SchemaError.
func ValidateRecord(v any) (*domain.FinancialRecord, error) {
	rec, _, _, err := validateRecord(v)
	return rec, err
}

// validateRecord also returns the transactions it dropped and the
// adjustments it made to category amounts and percents.
func validateRecord(v any) (*domain.FinancialRecord, []DroppedTransaction, []Violation, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, nil, nil, schemaErr("", "top-level value is %s, want object", jsonType(v))
	}
	for _, key := range []string{"total_spent", "categories", "transactions"} {
		if _, ok := obj[key]; !ok {
			return nil, nil, nil, schemaErr(key, "missing required field")
		}
	}
	catList, ok := obj["categories"].([]any)
	if !ok {
		return nil, nil, nil, schemaErr("categories", "is %s, want array", jsonType(obj["categories"]))
	}
	txList, ok := obj["transactions"].([]any)
	if !ok {
		return nil, nil, nil, schemaErr("transactions", "is %s, want array", jsonType(obj["transactions"]))
	}

	total, _, err := getNumberField(obj, "total_spent", true)
	if err != nil {
		return nil, nil, nil, err
	}
	rec := &domain.FinancialRecord{TotalSpent: math.Abs(total)}

	forecast, present, err := getNumberField(obj, "forecast_next_month", false)
	if err != nil {
		return nil, nil, nil, err
	}
	if present {
		rec.ForecastNextMonth = math.Abs(forecast)
	} else {
		rec.ForecastNextMonth = rec.TotalSpent * DefaultForecastFactor
	}

	if rec.Advice, err = getStringField(obj, "advice"); err != nil {
		return nil, nil, nil, err
	}

	var adjusted []Violation
	rec.Categories = make([]domain.Category, 0, len(catList))
	for i, item := range catList {
		c, adj, err := decodeCategory(i, item)
		if err != nil {
			return nil, nil, nil, err
		}
		rec.Categories = append(rec.Categories, c)
		adjusted = append(adjusted, adj...)
	}

	rec.Subscriptions = []domain.Subscription{}
	if raw, ok := obj["subscriptions"]; ok && raw != nil {
		subList, ok := raw.([]any)
		if !ok {
			return nil, nil, nil, schemaErr("subscriptions", "is %s, want array", jsonType(raw))
		}
		for i, item := range subList {
			s, err := decodeSubscription(i, item)
			if err != nil {
				return nil, nil, nil, err
			}
			rec.Subscriptions = append(rec.Subscriptions, s)
		}
	}

	var dropped []DroppedTransaction
	rec.Transactions = make([]domain.Transaction, 0, len(txList))
	for i, item := range txList {
		tx, reason, err := decodeTransaction(i, item)
		if err != nil {
			return nil, nil, nil, err
		}
		if reason != "" {
			dropped = append(dropped, DroppedTransaction{Index: i, Reason: reason})
			continue
		}
		rec.Transactions = append(rec.Transactions, tx)
	}

	return rec, dropped, adjusted, nil
}

// decodeCategory reports a violation whenever it has to flip the sign of the
// amount or clamp the percent into [0, 100].
func decodeCategory(i int, item any) (domain.Category, []Violation, error) {
	field := fmt.Sprintf("categories[%d]", i)
	obj, ok := item.(map[string]any)
	if !ok {
		return domain.Category{}, nil, schemaErr(field, "is %s, want object", jsonType(item))
	}

	var c domain.Category
	var err error
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"name", &c.Name}, {"name_ru", &c.NameRU}, {"name_kz", &c.NameKZ}, {"name_en", &c.NameEN},
	} {
		if *f.dst, err = getStringField(obj, f.key); err != nil {
			return c, nil, prefixed(field, err)
		}
	}
	if c.Name == "" {
		c.Name = firstNonEmpty(c.NameRU, c.NameEN, c.NameKZ, domain.KindOther.Name(domain.LocaleRU))
	}

	amount, _, err := getNumberField(obj, "amount", false)
	if err != nil {
		return c, nil, prefixed(field, err)
	}
	var adjusted []Violation
	c.Amount = math.Abs(amount)
	if amount < 0 {
		adjusted = append(adjusted, Violation{
			Check:  CheckCategoryAmount,
			Detail: fmt.Sprintf("%s amount %v made positive", field, amount),
		})
	}

	percent, _, err := getNumberField(obj, "percent", false)
	if err != nil {
		return c, nil, prefixed(field, err)
	}
	c.Percent = math.Min(math.Max(percent, 0), 100)
	if c.Percent != percent {
		adjusted = append(adjusted, Violation{
			Check:  CheckCategoryPercent,
			Detail: fmt.Sprintf("%s percent %v clamped to %v", field, percent, c.Percent),
		})
	}

	color, err := getStringField(obj, "color")
	if err != nil {
		return c, nil, prefixed(field, err)
	}
	kind, ok := domain.KindByName(c.Name)
	if !ok {
		kind = domain.KindOther
	}
	c.Color = NormalizeColor(color, kind.Color())
	return c, adjusted, nil
}

func decodeSubscription(i int, item any) (domain.Subscription, error) {
	field := fmt.Sprintf("subscriptions[%d]", i)
	obj, ok := item.(map[string]any)
	if !ok {
		return domain.Subscription{}, schemaErr(field, "is %s, want object", jsonType(item))
	}
	name, err := getStringField(obj, "name")
	if err != nil {
		return domain.Subscription{}, prefixed(field, err)
	}
	cost, _, err := getNumberField(obj, "cost", false)
	if err != nil {
		return domain.Subscription{}, prefixed(field, err)
	}
	return domain.Subscription{Name: strings.TrimSpace(name), Cost: math.Abs(cost)}, nil
}

// decodeTransaction returns a drop reason instead of an error for
// transactions that are well-typed but unusable.
func decodeTransaction(i int, item any) (domain.Transaction, string, error) {
	field := fmt.Sprintf("transactions[%d]", i)
	obj, ok := item.(map[string]any)
	if !ok {
		return domain.Transaction{}, "", schemaErr(field, "is %s, want object", jsonType(item))
	}

	var tx domain.Transaction
	var err error
	var dateStr string
	if dateStr, err = getStringField(obj, "date"); err != nil {
		return tx, "", prefixed(field, err)
	}
	if tx.Description, err = getStringField(obj, "description"); err != nil {
		return tx, "", prefixed(field, err)
	}
	if tx.Category, err = getStringField(obj, "category"); err != nil {
		return tx, "", prefixed(field, err)
	}

	amount, present, err := getNumberField(obj, "amount", false)
	if err != nil {
		return tx, "", prefixed(field, err)
	}
	if !present || amount <= 0 {
		return tx, fmt.Sprintf("non-positive amount %v", amount), nil
	}
	tx.Amount = amount

	if tx.Date, err = NormalizeDate(dateStr); err != nil {
		return tx, err.Error(), nil
	}
	return tx, "", nil
}

// NormalizeDate accepts DD.MM.YYYY, YYYY-MM-DD or DD/MM/YYYY and returns
// the date as DD.MM.YYYY.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t.Format(domain.DateLayout), nil
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d.In(time.UTC).Format(domain.DateLayout), nil
	}
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t.Format(domain.DateLayout), nil
	}
	return "", fmt.Errorf("unparseable date %q", s)
}

// NormalizeColor converts "#4caf50", "0xFF4CAF50" and similar spellings to
// six upper-case hex digits. Anything else yields def.
func NormalizeColor(s, def string) string {
	c := strings.TrimSpace(s)
	c = strings.TrimPrefix(c, "#")
	if len(c) > 2 && (c[:2] == "0x" || c[:2] == "0X") {
		c = c[2:]
	}
	if len(c) == 8 {
		c = c[2:]
	}
	if len(c) != 6 {
		return def
	}
	for i := 0; i < len(c); i++ {
		if !isHex(c[i]) {
			return def
		}
	}
	return strings.ToUpper(c)
}

func isHex(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}

// getNumberField reads a JSON number or an amount string. A missing or null
// field reports present=false, which is an error only when required.
func getNumberField(m map[string]any, key string, required bool) (float64, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, false, schemaErr(key, "missing required field")
		}
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false, schemaErr(key, "is not a finite number")
		}
		return val, true, nil
	case string:
		f, err := domain.ParseAmount(val)
		if err != nil {
			return 0, false, schemaErr(key, "%v", err)
		}
		return f, true, nil
	default:
		return 0, false, schemaErr(key, "is %s, want number", jsonType(v))
	}
}

// getStringField reads an optional string. Numbers are accepted and
// formatted, since models sometimes emit names like 2024.
func getStringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case float64:
		return fmt.Sprint(val), nil
	default:
		return "", schemaErr(key, "is %s, want string", jsonType(v))
	}
}

func prefixed(field string, err error) error {
	if se, ok := err.(*SchemaError); ok {
		return &SchemaError{Field: field + "." + se.Field, Reason: se.Reason}
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
