package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/repository"

	"github.com/google/uuid"
)

// splitTolerance absorbs floating point noise when checking that split
// details add up.
const splitTolerance = 0.1

// ExpenseService records shared costs against a group. All operations
// are membership-gated the same way chat is.
type ExpenseService struct {
	expenses repository.ExpenseStore
	chat     *ChatService
}

// NewExpenseService creates a new expense service
func NewExpenseService(expenses repository.ExpenseStore, chat *ChatService) *ExpenseService {
	return &ExpenseService{expenses: expenses, chat: chat}
}

// ExpenseInput carries the fields needed to record an expense
type ExpenseInput struct {
	Amount       float64            `json:"amount"`
	Description  string             `json:"description"`
	SplitType    string             `json:"type"`
	SplitDetails map[string]float64 `json:"splitDetails"`
}

// Create validates the split and records the expense
func (s *ExpenseService) Create(ctx context.Context, groupID, payerID string, in ExpenseInput) (*models.Expense, error) {
	group, err := s.chat.AuthorizeMember(ctx, groupID, payerID)
	if err != nil {
		return nil, err
	}

	if in.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", ErrValidation)
	}
	if in.SplitType == "" {
		in.SplitType = models.SplitEqual
	}

	switch in.SplitType {
	case models.SplitEqual:
	case models.SplitPercentage:
		var total float64
		for _, pct := range in.SplitDetails {
			total += pct
		}
		if math.Abs(total-100) > splitTolerance {
			return nil, fmt.Errorf("percentages must add up to 100%%: %w", ErrValidation)
		}
	case models.SplitExact:
		var total float64
		for _, amount := range in.SplitDetails {
			total += amount
		}
		if math.Abs(total-in.Amount) > splitTolerance {
			return nil, fmt.Errorf("split amounts must add up to the total amount: %w", ErrValidation)
		}
	default:
		return nil, fmt.Errorf("unknown split type %q: %w", in.SplitType, ErrValidation)
	}

	expense := &models.Expense{
		ID:           uuid.New().String(),
		GroupID:      group.ID,
		PayerID:      payerID,
		Amount:       in.Amount,
		Description:  strings.TrimSpace(in.Description),
		SplitType:    in.SplitType,
		SplitDetails: in.SplitDetails,
	}
	if expense.SplitDetails == nil {
		expense.SplitDetails = map[string]float64{}
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// List returns a group's expenses, newest first
func (s *ExpenseService) List(ctx context.Context, groupID, userID string) ([]models.Expense, error) {
	group, err := s.chat.AuthorizeMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	return s.expenses.ListByGroup(ctx, group.ID)
}

// Settle marks an expense settled. Only the payer may settle it.
func (s *ExpenseService) Settle(ctx context.Context, groupID, expenseID, userID string) error {
	if _, err := s.chat.AuthorizeMember(ctx, groupID, userID); err != nil {
		return err
	}
	expense, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return err
	}
	if expense.GroupID != groupID {
		return fmt.Errorf("expense: %w", repository.ErrNotFound)
	}
	if expense.PayerID != userID {
		return fmt.Errorf("only the payer can settle an expense: %w", ErrForbidden)
	}
	return s.expenses.MarkSettled(ctx, expenseID)
}
