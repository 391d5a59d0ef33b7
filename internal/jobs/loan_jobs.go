package jobs

import (
	"context"
	"time"

	"library-backend/internal/logger"
)

// MarkOverdueLoans marks loans as OVERDUE if they are past their due_date.
// The flip is presentational; returns accept either status and the fine
// is always recomputed from due_date at return time.
func (jr *JobRunner) MarkOverdueLoans() {
	jr.runWithRecovery("MarkOverdueLoans", func() {
		ctx := context.Background()

		query := `
			UPDATE loans
			SET status = 'OVERDUE'
			WHERE status = 'ISSUED'
			  AND due_date < $1
			RETURNING borrow_id, member_id, book_id, due_date
		`

		rows, err := jr.db.QueryContext(ctx, query, time.Now().UTC().Format("2006-01-02"))
		if err != nil {
			logger.Error("Failed to mark overdue loans", "error", err)
			return
		}
		defer rows.Close()

		count := 0
		var overdueLoans []struct {
			ID       int
			MemberID int
			BookID   int
			DueDate  string
		}

		for rows.Next() {
			var loan struct {
				ID       int
				MemberID int
				BookID   int
				DueDate  string
			}
			if err := rows.Scan(&loan.ID, &loan.MemberID, &loan.BookID, &loan.DueDate); err != nil {
				logger.Error("Failed to scan overdue loan", "error", err)
				continue
			}
			overdueLoans = append(overdueLoans, loan)
			count++
		}

		if err := rows.Err(); err != nil {
			logger.Error("Error iterating overdue loans", "error", err)
			return
		}

		logger.Info("Marked loans as overdue", "count", count)

		for _, loan := range overdueLoans {
			logger.Debug("Marked loan as overdue",
				"loan_id", loan.ID,
				"member_id", loan.MemberID,
				"book_id", loan.BookID,
				"due_date", loan.DueDate)
		}
	})
}

// AccrueOverdueFines recomputes fine_cents on every OVERDUE loan so the
// running amount members see stays current. The return-time computation
// remains authoritative and overwrites whatever is stored here.
func (jr *JobRunner) AccrueOverdueFines() {
	jr.runWithRecovery("AccrueOverdueFines", func() {
		ctx := context.Background()

		perDay := jr.config.Circulation.FinePerDayCents
		query := `
			UPDATE loans
			SET fine_cents = GREATEST(0, ($1::date - due_date::date)) * $2
			WHERE status = 'OVERDUE'
		`

		result, err := jr.db.ExecContext(ctx, query, time.Now().UTC().Format("2006-01-02"), perDay)
		if err != nil {
			logger.Error("Failed to accrue overdue fines", "error", err)
			return
		}

		count, err := result.RowsAffected()
		if err != nil {
			logger.Error("Failed to count accrued fines", "error", err)
			return
		}

		logger.Info("Accrued overdue fines", "count", count, "fine_per_day_cents", perDay)
	})
}
