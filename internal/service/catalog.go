package service

import (
	"context"
	"errors"
	"fmt"

	"library-backend/internal/domain"
	"library-backend/internal/logger"
	"library-backend/internal/repository"
)

type catalogService struct {
	store repository.Store
}

func NewCatalogService(store repository.Store) CatalogService {
	return &catalogService{store: store}
}

func (s *catalogService) AddBook(ctx context.Context, book *domain.Book) error {
	if book.Title == "" || book.ISBN == "" {
		return fmt.Errorf("%w: title and ISBN are required", domain.ErrInvalidArgument)
	}
	if book.TotalCopies < 0 {
		return fmt.Errorf("%w: total copies must not be negative", domain.ErrInvalidArgument)
	}

	return s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		existing, err := tx.Books.GetByISBN(ctx, book.ISBN)
		if err != nil && !errors.Is(err, domain.ErrBookNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: ISBN %s already registered as book %d", domain.ErrConflict, book.ISBN, existing.ID)
		}
		// New titles start with every copy on the shelf.
		book.AvailableCopies = book.TotalCopies
		return tx.Books.Create(ctx, book)
	})
}

// UpdateBook edits descriptive fields only. Copy counters are owned by
// SetStock and the circulation engine and are not touched here.
func (s *catalogService) UpdateBook(ctx context.Context, book *domain.Book) error {
	return s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		current, err := tx.Books.GetByID(ctx, book.ID)
		if err != nil {
			return err
		}
		if book.ISBN != current.ISBN {
			other, err := tx.Books.GetByISBN(ctx, book.ISBN)
			if err != nil && !errors.Is(err, domain.ErrBookNotFound) {
				return err
			}
			if other != nil && other.ID != book.ID {
				return fmt.Errorf("%w: ISBN %s already registered as book %d", domain.ErrConflict, book.ISBN, other.ID)
			}
		}
		book.TotalCopies = current.TotalCopies
		book.AvailableCopies = current.AvailableCopies
		return tx.Books.Update(ctx, book)
	})
}

// SetStock changes total_copies and recomputes available_copies so the
// borrowed count is preserved. Shrinking below the number of copies
// currently out is refused.
func (s *catalogService) SetStock(ctx context.Context, bookID, totalCopies int32) (*domain.Book, error) {
	if totalCopies < 0 {
		return nil, fmt.Errorf("%w: total copies must not be negative", domain.ErrInvalidArgument)
	}

	var book *domain.Book
	err := s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		var err error
		book, err = tx.Books.GetByID(ctx, bookID)
		if err != nil {
			return err
		}
		borrowed := book.BorrowedCopies()
		if totalCopies < borrowed {
			return fmt.Errorf("%w: %d copies of book %d are out on loan", domain.ErrInvalidState, borrowed, bookID)
		}
		if err := tx.Books.SetStock(ctx, bookID, totalCopies, totalCopies-borrowed); err != nil {
			return err
		}
		book.TotalCopies = totalCopies
		book.AvailableCopies = totalCopies - borrowed
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Book stock updated", "book_id", bookID, "total_copies", book.TotalCopies, "available_copies", book.AvailableCopies)
	return book, nil
}

// DeleteBook removes a title only when no copies are out. Historical
// requests and loans keep their foreign keys, so deletion is refused
// while any copy is on loan.
func (s *catalogService) DeleteBook(ctx context.Context, bookID int32) error {
	return s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		book, err := tx.Books.GetByID(ctx, bookID)
		if err != nil {
			return err
		}
		if borrowed := book.BorrowedCopies(); borrowed > 0 {
			return fmt.Errorf("%w: %d copies of book %d are out on loan", domain.ErrInvalidState, borrowed, bookID)
		}
		outstanding, err := tx.Loans.CountActiveByBook(ctx, bookID)
		if err != nil {
			return err
		}
		if outstanding > 0 {
			return fmt.Errorf("%w: book %d has %d outstanding loans", domain.ErrInvalidState, bookID, outstanding)
		}
		return tx.Books.Delete(ctx, bookID)
	})
}

func (s *catalogService) GetBook(ctx context.Context, bookID int32) (*domain.Book, error) {
	return s.store.Ledgers().Books.GetByID(ctx, bookID)
}

func (s *catalogService) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return s.store.Ledgers().Books.List(ctx)
}

func (s *catalogService) ListAvailableBooks(ctx context.Context) ([]domain.Book, error) {
	return s.store.Ledgers().Books.ListAvailable(ctx)
}

func (s *catalogService) SearchBooks(ctx context.Context, query string) ([]domain.Book, error) {
	return s.store.Ledgers().Books.Search(ctx, query)
}

// ListLowStock is advisory for librarians; low stock never blocks an
// approval.
func (s *catalogService) ListLowStock(ctx context.Context) ([]domain.Book, error) {
	books, err := s.store.Ledgers().Books.List(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Book, 0)
	for _, b := range books {
		if b.IsLowStock() {
			low = append(low, b)
		}
	}
	return low, nil
}

func (s *catalogService) InventorySummary(ctx context.Context) (int32, int32, error) {
	books := s.store.Ledgers().Books
	available, err := books.TotalAvailableCopies(ctx)
	if err != nil {
		return 0, 0, err
	}
	borrowed, err := books.TotalBorrowedCopies(ctx)
	if err != nil {
		return 0, 0, err
	}
	return available, borrowed, nil
}
