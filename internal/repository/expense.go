package repository

import (
	"context"
	"errors"
	"fmt"

	"ridezon-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpenseRepository handles database operations for group expenses
type ExpenseRepository struct {
	db *pgxpool.Pool
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create persists an expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	query := `
		INSERT INTO expenses (id, group_id, payer_id, amount, description, split_type, split_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		expense.ID, expense.GroupID, expense.PayerID, expense.Amount,
		expense.Description, expense.SplitType, expense.SplitDetails,
	).Scan(&expense.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	query := `
		SELECT e.id, e.group_id, e.payer_id, e.amount, e.description,
			e.split_type, e.split_details, e.settled, e.created_at
		FROM expenses e
		WHERE e.id = $1
	`
	var expense models.Expense
	err := r.db.QueryRow(ctx, query, id).Scan(
		&expense.ID, &expense.GroupID, &expense.PayerID, &expense.Amount,
		&expense.Description, &expense.SplitType, &expense.SplitDetails,
		&expense.Settled, &expense.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expense: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return &expense, nil
}

// ListByGroup retrieves a group's expenses, newest first
func (r *ExpenseRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Expense, error) {
	query := `
		SELECT e.id, e.group_id, e.payer_id, e.amount, e.description,
			e.split_type, e.split_details, e.settled, e.created_at,
			u.full_name
		FROM expenses e
		JOIN users u ON u.id = e.payer_id
		WHERE e.group_id = $1
		ORDER BY e.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		var payer models.Sender
		err := rows.Scan(&e.ID, &e.GroupID, &e.PayerID, &e.Amount, &e.Description,
			&e.SplitType, &e.SplitDetails, &e.Settled, &e.CreatedAt, &payer.FullName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		payer.ID = e.PayerID
		e.Payer = &payer
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// MarkSettled flags an expense as settled
func (r *ExpenseRepository) MarkSettled(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE expenses SET settled = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to settle expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense: %w", ErrNotFound)
	}
	return nil
}
