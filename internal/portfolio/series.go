package portfolio

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/holdings/internal/domain"
)

var (
	historyStart = decimal.RequireFromString("0.7")
	historySpan  = decimal.RequireFromString("0.3")
)

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthlyProfit buckets payouts into the last five calendar months, oldest first,
// ending with the month of now. Payouts outside the window are ignored.
func monthlyProfit(payouts []payout, now time.Time) []domain.MonthlyProfit {
	byMonth := lo.GroupBy(payouts, func(p payout) string {
		return p.recorded.ExecutedAt.UTC().Format("2006-01")
	})

	current := monthStart(now)
	out := make([]domain.MonthlyProfit, monthlyBuckets)
	for i := range out {
		month := current.AddDate(0, i-(monthlyBuckets-1), 0)
		key := month.Format("2006-01")
		out[i] = domain.MonthlyProfit{
			Month: key,
			Label: month.Format("Jan"),
			Amount: lo.Reduce(byMonth[key], func(acc decimal.Decimal, p payout, _ int) decimal.Decimal {
				return acc.Add(p.amount)
			}, decimal.Zero),
		}
	}
	return out
}

// monthlyChange is the percentage change of the last bucket against the previous one.
func monthlyChange(buckets []domain.MonthlyProfit) decimal.Decimal {
	if len(buckets) < 2 {
		return decimal.Zero
	}
	current := buckets[len(buckets)-1].Amount
	previous := buckets[len(buckets)-2].Amount
	if previous.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return domain.Percent(current.Sub(previous), previous)
}

// investmentHistory interpolates 30 daily points from 70% to 100% of invested, ending today.
func investmentHistory(invested decimal.Decimal, now time.Time) []domain.HistoryPoint {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	steps := decimal.NewFromInt(historyPoints - 1)

	out := make([]domain.HistoryPoint, historyPoints)
	for i := range out {
		factor := historyStart.Add(historySpan.Mul(decimal.NewFromInt(int64(i))).Div(steps))
		out[i] = domain.HistoryPoint{
			Date:  today.AddDate(0, 0, i-(historyPoints-1)),
			Value: invested.Mul(factor),
		}
	}
	return out
}
