package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
)

const bookColumns = `book_id, isbn, title, author, COALESCE(category, ''), COALESCE(description, ''), total_copies, available_copies, price_cents, COALESCE(shelf_location, ''), created_at`

type bookRepository struct {
	db DBTX
}

func NewBookRepository(db DBTX) repository.BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, b *domain.Book) error {
	query := `INSERT INTO books (isbn, title, author, category, description, total_copies, available_copies, price_cents, shelf_location, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING book_id`
	err := r.db.QueryRowContext(ctx, query, b.ISBN, b.Title, b.Author, b.Category, b.Description, b.TotalCopies, b.AvailableCopies, b.PriceCents, b.ShelfLocation, time.Now()).Scan(&b.ID)
	return mapError(err)
}

func (r *bookRepository) GetByID(ctx context.Context, id int32) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE book_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, isbn))
}

func (r *bookRepository) Update(ctx context.Context, b *domain.Book) error {
	query := `UPDATE books SET isbn=$1, title=$2, author=$3, category=$4, description=$5, price_cents=$6, shelf_location=$7 WHERE book_id=$8`
	res, err := r.db.ExecContext(ctx, query, b.ISBN, b.Title, b.Author, b.Category, b.Description, b.PriceCents, b.ShelfLocation, b.ID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res, domain.ErrBookNotFound)
}

func (r *bookRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE book_id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res, domain.ErrBookNotFound)
}

func (r *bookRepository) List(ctx context.Context) ([]domain.Book, error) {
	return r.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY title`)
}

func (r *bookRepository) ListAvailable(ctx context.Context) ([]domain.Book, error) {
	return r.queryBooks(ctx, `SELECT `+bookColumns+` FROM books WHERE available_copies > 0 ORDER BY title`)
}

func (r *bookRepository) Search(ctx context.Context, query string) ([]domain.Book, error) {
	pattern := "%" + query + "%"
	sqlQuery := `SELECT ` + bookColumns + ` FROM books
	             WHERE title ILIKE $1 OR author ILIKE $1 OR isbn ILIKE $1 OR category ILIKE $1
	             ORDER BY title`
	return r.queryBooks(ctx, sqlQuery, pattern)
}

// AdjustAvailability applies the delta only when the result stays within
// [0, total_copies]. The guard and the write are one statement, so two
// racing decrements of the last copy leave exactly one winner.
func (r *bookRepository) AdjustAvailability(ctx context.Context, bookID, delta int32) error {
	query := `UPDATE books SET available_copies = available_copies + $2
	          WHERE book_id = $1
	            AND available_copies + $2 >= 0
	            AND available_copies + $2 <= total_copies`
	res, err := r.db.ExecContext(ctx, query, bookID, delta)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected > 0 {
		return nil
	}
	// No row moved: distinguish a missing book from a blocked delta.
	if _, err := r.GetByID(ctx, bookID); err != nil {
		return err
	}
	if delta < 0 {
		return fmt.Errorf("%w: book %d", domain.ErrBookUnavailable, bookID)
	}
	return fmt.Errorf("%w: increment would exceed total copies for book %d", domain.ErrConflict, bookID)
}

func (r *bookRepository) SetStock(ctx context.Context, bookID, totalCopies, availableCopies int32) error {
	query := `UPDATE books SET total_copies = $2, available_copies = $3 WHERE book_id = $1`
	res, err := r.db.ExecContext(ctx, query, bookID, totalCopies, availableCopies)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res, domain.ErrBookNotFound)
}

func (r *bookRepository) TotalAvailableCopies(ctx context.Context) (int32, error) {
	var total int32
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(available_copies), 0) FROM books`).Scan(&total)
	return total, mapError(err)
}

func (r *bookRepository) TotalBorrowedCopies(ctx context.Context) (int32, error) {
	var total int32
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_copies - available_copies), 0) FROM books`).Scan(&total)
	return total, mapError(err)
}

func (r *bookRepository) scanOne(row *sql.Row) (*domain.Book, error) {
	b := &domain.Book{}
	err := row.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Category, &b.Description, &b.TotalCopies, &b.AvailableCopies, &b.PriceCents, &b.ShelfLocation, &b.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

func (r *bookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Category, &b.Description, &b.TotalCopies, &b.AvailableCopies, &b.PriceCents, &b.ShelfLocation, &b.CreatedOn); err != nil {
			return nil, mapError(err)
		}
		books = append(books, b)
	}
	return books, mapError(rows.Err())
}

// requireRow converts a zero-row update into the given not-found error.
func requireRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
