package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeLateFeeCents(t *testing.T) {
	due := date(2025, time.January, 1)

	t.Run("Four days late", func(t *testing.T) {
		fee := ComputeLateFeeCents(due, date(2025, time.January, 5), 100)
		assert.Equal(t, int32(400), fee)
	})

	t.Run("Returned on due date", func(t *testing.T) {
		fee := ComputeLateFeeCents(due, due, 100)
		assert.Equal(t, int32(0), fee)
	})

	t.Run("Returned early", func(t *testing.T) {
		fee := ComputeLateFeeCents(due, date(2024, time.December, 20), 100)
		assert.Equal(t, int32(0), fee)
	})

	t.Run("Time of day is ignored", func(t *testing.T) {
		dueEvening := time.Date(2025, time.January, 1, 23, 50, 0, 0, time.UTC)
		asOfMorning := time.Date(2025, time.January, 2, 0, 10, 0, 0, time.UTC)
		fee := ComputeLateFeeCents(dueEvening, asOfMorning, 150)
		assert.Equal(t, int32(150), fee)
	})
}

func TestLoan_IsOverdue(t *testing.T) {
	loan := &Loan{Status: LoanStatusIssued, DueDate: date(2025, time.March, 10)}

	assert.False(t, loan.IsOverdue(date(2025, time.March, 10)))
	assert.True(t, loan.IsOverdue(date(2025, time.March, 11)))

	// The persisted OVERDUE display status still counts as outstanding.
	loan.Status = LoanStatusOverdue
	assert.True(t, loan.IsOverdue(date(2025, time.March, 11)))

	loan.Status = LoanStatusReturned
	assert.False(t, loan.IsOverdue(date(2025, time.March, 11)))
}

func TestLoan_DaysOverdue(t *testing.T) {
	loan := &Loan{Status: LoanStatusIssued, DueDate: date(2025, time.March, 10)}

	assert.Equal(t, int32(0), loan.DaysOverdue(date(2025, time.March, 9)))
	assert.Equal(t, int32(0), loan.DaysOverdue(date(2025, time.March, 10)))
	assert.Equal(t, int32(3), loan.DaysOverdue(date(2025, time.March, 13)))
}

func TestLoan_LateFeeCents(t *testing.T) {
	loan := &Loan{Status: LoanStatusIssued, DueDate: date(2025, time.June, 1)}
	assert.Equal(t, int32(500), loan.LateFeeCents(date(2025, time.June, 6), 100))
}
