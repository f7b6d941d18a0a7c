// Package policy holds the category rules applied to every analysed record:
// which subscriptions are never reported, which services count as
// subscriptions, and how merchant names map to category kinds.
package policy

import (
	"strings"

	"github.com/funster-a/hackathon-backend/internal/domain"
)

// Rule maps merchant keywords to a category kind. Keywords match as
// case-insensitive substrings of a transaction description.
type Rule struct {
	Kind     domain.CategoryKind
	Keywords []string
}

var defaultBlacklist = []string{
	"kaspi magazin",
	"kaspi red",
	"рассрочка",
	"credit",
	"погашение кредита",
}

var defaultWhitelist = []string{
	"Spotify", "Netflix", "Apple", "Yandex", "Google", "Ivi",
}

// Order matters: "yandex plus" is a subscription, "yandex go" is transport,
// and Kaspi Red is credit even at a grocery store.
var defaultRules = []Rule{
	{Kind: domain.KindCredit, Keywords: []string{"kaspi red", "рассрочка"}},
	{Kind: domain.KindSubscriptions, Keywords: []string{"spotify", "netflix", "apple", "ivi", "yandex plus"}},
	{Kind: domain.KindTransport, Keywords: []string{"yandex go", "uber", "onay", "такси", "taxi"}},
	{Kind: domain.KindProducts, Keywords: []string{"magnum", "small", "супермаркет", "galmart"}},
	{Kind: domain.KindEntertainment, Keywords: []string{"steam", "kino", "playstation", "cinema"}},
	{Kind: domain.KindFood, Keywords: []string{"кафе", "бургер", "тандыр", "bahandi", "burger", "cafe"}},
	{Kind: domain.KindTransfers, Keywords: []string{"перевод", "transfer"}},
}

// Policy is immutable after construction and safe for concurrent use.
type Policy struct {
	blacklist []string
	whitelist []string
	rules     []Rule
}

// Default returns the built-in policy.
func Default() *Policy {
	return &Policy{
		blacklist: lowerAll(defaultBlacklist),
		whitelist: append([]string(nil), defaultWhitelist...),
		rules:     cloneRules(defaultRules),
	}
}

// WithRules returns a copy of p whose merchant rules are extra followed by
// p's own rules, so extra rules take precedence.
func (p *Policy) WithRules(extra []Rule) *Policy {
	out := &Policy{
		blacklist: append([]string(nil), p.blacklist...),
		whitelist: append([]string(nil), p.whitelist...),
	}
	for _, r := range extra {
		out.rules = append(out.rules, Rule{Kind: r.Kind, Keywords: lowerAll(r.Keywords)})
	}
	out.rules = append(out.rules, cloneRules(p.rules)...)
	return out
}

// Blacklist returns the lower-cased blacklist substrings.
func (p *Policy) Blacklist() []string { return append([]string(nil), p.blacklist...) }

// Whitelist returns the subscription services the oracle is told about.
func (p *Policy) Whitelist() []string { return append([]string(nil), p.whitelist...) }

// Rules returns the merchant rules in match order.
func (p *Policy) Rules() []Rule { return cloneRules(p.rules) }

// IsBlacklisted reports whether name contains any blacklisted substring.
func (p *Policy) IsBlacklisted(name string) bool {
	n := strings.ToLower(name)
	for _, b := range p.blacklist {
		if strings.Contains(n, b) {
			return true
		}
	}
	return false
}

// IsSubscriptionService reports whether name mentions a whitelisted service.
func (p *Policy) IsSubscriptionService(name string) bool {
	n := strings.ToLower(name)
	for _, w := range p.whitelist {
		if strings.Contains(n, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// FilterSubscriptions drops blacklisted subscriptions and keeps the rest in
// order. The result is never nil.
func (p *Policy) FilterSubscriptions(subs []domain.Subscription) []domain.Subscription {
	out := make([]domain.Subscription, 0, len(subs))
	for _, s := range subs {
		if p.IsBlacklisted(s.Name) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// MatchMerchant returns the kind of the first rule with a keyword contained
// in description.
func (p *Policy) MatchMerchant(description string) (domain.CategoryKind, bool) {
	d := strings.ToLower(description)
	for _, r := range p.rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(d, kw) {
				return r.Kind, true
			}
		}
	}
	return "", false
}

// Apply returns a copy of rec with blacklisted subscriptions removed and
// category names localised. Categories that resolve to a known kind get
// their missing localised names filled in; any category with a name for l
// is renamed to it. Transactions follow their category's new name.
func (p *Policy) Apply(rec *domain.FinancialRecord, l domain.Locale) *domain.FinancialRecord {
	if rec == nil {
		return nil
	}
	out := rec.Clone()
	out.Subscriptions = p.FilterSubscriptions(out.Subscriptions)

	switch l {
	case domain.LocaleRU, domain.LocaleKZ, domain.LocaleEN:
	default:
		l = domain.LocaleRU
	}

	renamed := make(map[string]string)
	for i := range out.Categories {
		c := &out.Categories[i]
		if kind, ok := resolveKind(*c); ok {
			if c.NameRU == "" {
				c.NameRU = kind.Name(domain.LocaleRU)
			}
			if c.NameKZ == "" {
				c.NameKZ = kind.Name(domain.LocaleKZ)
			}
			if c.NameEN == "" {
				c.NameEN = kind.Name(domain.LocaleEN)
			}
		}
		name := c.LocalizedName(l)
		if name == "" || name == c.Name {
			continue
		}
		if c.Name != "" {
			renamed[c.Name] = name
		}
		c.Name = name
	}

	if len(renamed) > 0 {
		for i := range out.Transactions {
			if name, ok := renamed[out.Transactions[i].Category]; ok {
				out.Transactions[i].Category = name
			}
		}
	}
	return out
}

func resolveKind(c domain.Category) (domain.CategoryKind, bool) {
	for _, name := range []string{c.Name, c.NameRU, c.NameEN, c.NameKZ} {
		if k, ok := domain.KindByName(name); ok {
			return k, true
		}
	}
	return "", false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func cloneRules(in []Rule) []Rule {
	out := make([]Rule, len(in))
	for i, r := range in {
		out[i] = Rule{Kind: r.Kind, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}
