package pipeline

import (
	"strings"

	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/policy"
)

const basePrompt = "Ты финансовый аналитик. Твоя задача - распарсить текст выписки Kaspi Gold (Казахстан).\n\n" +
	"ОСОБЕННОСТИ ФОРМАТА KASPI:\n" +
	"1. Суммы расходов могут быть \"- 1 500,00 T\" (минус слева), \"1 500,00 - T\" (минус справа)\n" +
	"   или разорваны пробелами \"13 - 050,00 T\".\n" +
	"2. Расходы - это 'Purchases', 'Withdrawals', 'Transfers'.\n" +
	"3. Игнорируй 'Replenishment' (пополнения): в transactions только расходы с положительной суммой.\n\n"

const schemaPrompt = "ВЕРНИ ТОЛЬКО JSON (без markdown и пояснений):\n" +
	"{\n" +
	"  \"total_spent\": float,\n" +
	"  \"forecast_next_month\": float,\n" +
	"  \"categories\": [{\"name\": \"string\", \"name_ru\": \"string\", \"name_kz\": \"string\", \"name_en\": \"string\", \"amount\": float, \"percent\": float, \"color\": \"RRGGBB\"}],\n" +
	"  \"subscriptions\": [{\"name\": \"string\", \"cost\": float}],\n" +
	"  \"advice\": \"string\",\n" +
	"  \"transactions\": [{\"date\": \"DD.MM.YYYY\", \"amount\": float, \"description\": \"string\", \"category\": \"string\"}]\n" +
	"}\n" +
	"Поле category каждой транзакции должно совпадать с name одной из categories.\n" +
	"name_ru, name_kz и name_en - название категории на русском, казахском и английском.\n"

// BuildSystemPrompt renders the analysis instructions for p.
func BuildSystemPrompt(p *policy.Policy) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	b.WriteString("КАТЕГОРИИ:\n")
	for _, r := range p.Rules() {
		b.WriteString("- ")
		b.WriteString(strings.Join(r.Keywords, "/"))
		b.WriteString(" -> \"")
		b.WriteString(r.Kind.Name(domain.LocaleRU))
		b.WriteString("\"\n")
	}
	b.WriteString("- всё остальное -> \"")
	b.WriteString(domain.KindOther.Name(domain.LocaleRU))
	b.WriteString("\"\n\n")

	b.WriteString("ПРАВИЛА:\n")
	b.WriteString("1. Подписки - это ТОЛЬКО: ")
	b.WriteString(strings.Join(p.Whitelist(), ", "))
	b.WriteString(".\n")
	b.WriteString("2. Никогда не добавляй в subscriptions: ")
	b.WriteString(strings.Join(p.Blacklist(), ", "))
	b.WriteString(". Kaspi Red - это кредит/рассрочка, НЕ подписка.\n")
	b.WriteString("3. Перевод юр.лицу (ИП, ТОО) - попробуй угадать категорию, физ.лицу - \"Переводы\".\n")
	b.WriteString("4. advice - совет на русском, упомяни конкретные магазины из выписки.\n\n")

	b.WriteString(schemaPrompt)
	return b.String()
}

// BuildUserPrompt prefixes the statement text, truncated to MaxPromptRunes.
func BuildUserPrompt(text string) string {
	return userPromptPrefix + truncateRunes(text, MaxPromptRunes)
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
