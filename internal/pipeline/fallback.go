package pipeline

import "github.com/funster-a/hackathon-backend/internal/domain"

// FallbackVersion identifies the canonical record. Bump it whenever
// canonicalFallback changes.
const FallbackVersion = "2024-03-kaspi-1"

var canonicalFallback = domain.FinancialRecord{
	TotalSpent:        100165,
	ForecastNextMonth: 115000,
	Categories: []domain.Category{
		{
			Name: "Продукты (Magnum)", NameRU: "Продукты (Magnum)", NameKZ: "Азық-түлік (Magnum)", NameEN: "Groceries (Magnum)",
			Amount: 45000, Percent: 45, Color: "4CAF50",
		},
		{
			Name: "Такси (Yandex)", NameRU: "Такси (Yandex)", NameKZ: "Такси (Yandex)", NameEN: "Taxi (Yandex)",
			Amount: 12500, Percent: 12, Color: "FFC107",
		},
		{
			Name: "Развлечения (Steam/Kino)", NameRU: "Развлечения (Steam/Kino)", NameKZ: "Ойын-сауық (Steam/Kino)", NameEN: "Entertainment (Steam/Kino)",
			Amount: 14400, Percent: 14, Color: "9C27B0",
		},
		{
			Name: "Фастфуд (Тандыр/Bahandi)", NameRU: "Фастфуд (Тандыр/Bahandi)", NameKZ: "Фастфуд (Тандыр/Bahandi)", NameEN: "Fast food (Tandyr/Bahandi)",
			Amount: 8500, Percent: 8, Color: "FF5722",
		},
		{
			Name: "Прочее", NameRU: "Прочее", NameKZ: "Басқа", NameEN: "Other",
			Amount: 19765, Percent: 21, Color: "9E9E9E",
		},
	},
	Subscriptions: []domain.Subscription{
		{Name: "Spotify Premium", Cost: 4282},
	},
	Advice: "Амир, мы заметили подписку на Spotify (4282 ₸) и частые траты в Steam. " +
		"В Магнуме вы оставили 45% бюджета. Рекомендуем оформить карту Magnum Club для бонусов.",
	Transactions: []domain.Transaction{
		{Date: "05.03.2024", Amount: 45000, Description: "Magnum Cash&Carry", Category: "Продукты (Magnum)"},
		{Date: "07.03.2024", Amount: 12500, Description: "Yandex Go", Category: "Такси (Yandex)"},
		{Date: "09.03.2024", Amount: 14400, Description: "Steam / Kinopark", Category: "Развлечения (Steam/Kino)"},
		{Date: "11.03.2024", Amount: 8500, Description: "Тандыр / Bahandi", Category: "Фастфуд (Тандыр/Bahandi)"},
		{Date: "15.03.2024", Amount: 19765, Description: "Прочие покупки", Category: "Прочее"},
	},
}

// FallbackRecord returns a fresh copy of the canonical record served when
// analysis fails.
func FallbackRecord() *domain.FinancialRecord {
	return canonicalFallback.Clone()
}
