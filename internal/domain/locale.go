package domain

import "strings"

// Locale selects the language of category names in a record.
type Locale string

const (
	LocaleRU Locale = "ru"
	LocaleKZ Locale = "kz"
	LocaleEN Locale = "en"
)

// ParseLocale maps a request value to a supported locale.
// Unknown values fall back to LocaleRU.
func ParseLocale(s string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case LocaleKZ, "kk":
		return LocaleKZ
	case LocaleEN:
		return LocaleEN
	default:
		return LocaleRU
	}
}

// CategoryKind is the closed set of spending categories the service knows
// how to name in every locale.
type CategoryKind string

const (
	KindProducts      CategoryKind = "products"
	KindTransport     CategoryKind = "transport"
	KindEntertainment CategoryKind = "entertainment"
	KindFood          CategoryKind = "food"
	KindSubscriptions CategoryKind = "subscriptions"
	KindTransfers     CategoryKind = "transfers"
	KindCredit        CategoryKind = "credit"
	KindOther         CategoryKind = "other"
)

type kindInfo struct {
	ru, kz, en string
	color      string
}

var kindTable = map[CategoryKind]kindInfo{
	KindProducts:      {ru: "Продукты", kz: "Азық-түлік", en: "Groceries", color: "4CAF50"},
	KindTransport:     {ru: "Транспорт", kz: "Көлік", en: "Transport", color: "FFC107"},
	KindEntertainment: {ru: "Развлечения", kz: "Ойын-сауық", en: "Entertainment", color: "9C27B0"},
	KindFood:          {ru: "Еда", kz: "Тамақ", en: "Food", color: "FF5722"},
	KindSubscriptions: {ru: "Подписки", kz: "Жазылымдар", en: "Subscriptions", color: "2196F3"},
	KindTransfers:     {ru: "Переводы", kz: "Аударымдар", en: "Transfers", color: "607D8B"},
	KindCredit:        {ru: "Кредиты и рассрочки", kz: "Несие және бөліп төлеу", en: "Credit & installments", color: "F44336"},
	KindOther:         {ru: "Прочее", kz: "Басқа", en: "Other", color: "9E9E9E"},
}

var kindOrder = []CategoryKind{
	KindProducts, KindTransport, KindEntertainment, KindFood,
	KindSubscriptions, KindTransfers, KindCredit, KindOther,
}

// Kinds returns every category kind in display order.
func Kinds() []CategoryKind {
	return append([]CategoryKind(nil), kindOrder...)
}

// Valid reports whether k is a known kind.
func (k CategoryKind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Name returns the display name of k in locale l.
func (k CategoryKind) Name(l Locale) string {
	info, ok := kindTable[k]
	if !ok {
		info = kindTable[KindOther]
	}
	switch l {
	case LocaleKZ:
		return info.kz
	case LocaleEN:
		return info.en
	default:
		return info.ru
	}
}

// Color returns the default chart colour of k.
func (k CategoryKind) Color() string {
	if info, ok := kindTable[k]; ok {
		return info.color
	}
	return kindTable[KindOther].color
}

// KindByName resolves a category name in any supported locale, or a kind
// identifier, to its kind. Names decorated with merchant details such as
// "Продукты (Magnum)" resolve as well.
func KindByName(name string) (CategoryKind, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	for _, k := range kindOrder {
		info := kindTable[k]
		for _, candidate := range []string{string(k), info.ru, info.kz, info.en} {
			c := strings.ToLower(candidate)
			if n == c {
				return k, true
			}
			if strings.HasPrefix(n, c) {
				rest := strings.TrimSpace(n[len(c):])
				if strings.HasPrefix(rest, "(") {
					return k, true
				}
			}
		}
	}
	return "", false
}
