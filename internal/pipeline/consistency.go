package pipeline

import (
	"fmt"
	"math"

	"github.com/funster-a/hackathon-backend/internal/domain"
)

// Checks reported by CheckConsistency.
const (
	CheckPercentSum          = "percent_sum"
	CheckAmountSum           = "amount_sum"
	CheckTransactionCategory = "transaction_category"
)

// Checks reported by the validate and policy steps.
const (
	CheckCategoryAmount  = "category_amount"
	CheckCategoryPercent = "category_percent"
	CheckSubscription    = "subscription_service"
)

const (
	percentTolerance = 1.0  // percentage points
	amountTolerance  = 0.01 // share of total_spent
)

// Violation is a soft invariant the record does not meet.
type Violation struct {
	Check  string
	Detail string
}

func (v Violation) String() string { return v.Check + ": " + v.Detail }

// CheckConsistency reports where rec disagrees with itself. Nothing is
// corrected.
func CheckConsistency(rec *domain.FinancialRecord) []Violation {
	var out []Violation
	if rec == nil || len(rec.Categories) == 0 {
		return out
	}

	var percent, amount float64
	for _, c := range rec.Categories {
		percent += c.Percent
		amount += c.Amount
	}
	if math.Abs(percent-100) > percentTolerance {
		out = append(out, Violation{
			Check:  CheckPercentSum,
			Detail: fmt.Sprintf("category percents sum to %.2f", percent),
		})
	}
	if diff := math.Abs(amount - rec.TotalSpent); diff > math.Max(1, rec.TotalSpent*amountTolerance) {
		out = append(out, Violation{
			Check:  CheckAmountSum,
			Detail: fmt.Sprintf("category amounts sum to %.2f, total_spent is %.2f", amount, rec.TotalSpent),
		})
	}
	for i, tx := range rec.Transactions {
		if !rec.HasCategory(tx.Category) {
			out = append(out, Violation{
				Check:  CheckTransactionCategory,
				Detail: fmt.Sprintf("transactions[%d] category %q is not a record category", i, tx.Category),
			})
		}
	}
	return out
}
