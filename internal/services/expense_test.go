package services

import (
	"context"
	"errors"
	"testing"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/repository"
)

func TestExpenseCreateSplitValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewExpenseService(expenseStore{f.store}, f.chat)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      ExpenseInput
		wantErr error
	}{
		{"equal split ok", ExpenseInput{Amount: 4500, Description: "Fuel", SplitType: models.SplitEqual}, nil},
		{"blank type defaults to equal", ExpenseInput{Amount: 1000}, nil},
		{"zero amount", ExpenseInput{Amount: 0, SplitType: models.SplitEqual}, ErrValidation},
		{"negative amount", ExpenseInput{Amount: -50, SplitType: models.SplitEqual}, ErrValidation},
		{"unknown split type", ExpenseInput{Amount: 100, SplitType: "RANDOM"}, ErrValidation},
		{
			"percentage ok",
			ExpenseInput{Amount: 1000, SplitType: models.SplitPercentage,
				SplitDetails: map[string]float64{"u-creator": 60, "u-passenger": 40}},
			nil,
		},
		{
			"percentage tolerates float noise",
			ExpenseInput{Amount: 1000, SplitType: models.SplitPercentage,
				SplitDetails: map[string]float64{"u-creator": 33.33, "u-passenger": 33.33, "u-outsider": 33.34}},
			nil,
		},
		{
			"percentage not summing to 100",
			ExpenseInput{Amount: 1000, SplitType: models.SplitPercentage,
				SplitDetails: map[string]float64{"u-creator": 60, "u-passenger": 30}},
			ErrValidation,
		},
		{
			"exact ok",
			ExpenseInput{Amount: 1000, SplitType: models.SplitExact,
				SplitDetails: map[string]float64{"u-creator": 400, "u-passenger": 600}},
			nil,
		},
		{
			"exact not matching total",
			ExpenseInput{Amount: 1000, SplitType: models.SplitExact,
				SplitDetails: map[string]float64{"u-creator": 400, "u-passenger": 500}},
			ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expense, err := svc.Create(ctx, f.groupID, f.creator.ID, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if expense.GroupID != f.groupID || expense.PayerID != f.creator.ID {
				t.Errorf("expense = %+v", expense)
			}
			if expense.SplitDetails == nil {
				t.Error("split details should never be nil")
			}
		})
	}
}

func TestExpenseMembershipGate(t *testing.T) {
	f := newFixture(t)
	svc := NewExpenseService(expenseStore{f.store}, f.chat)
	ctx := context.Background()

	in := ExpenseInput{Amount: 500, SplitType: models.SplitEqual}
	if _, err := svc.Create(ctx, f.groupID, f.outsider.ID, in); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider create = %v, want ErrForbidden", err)
	}
	if _, err := svc.List(ctx, f.groupID, f.outsider.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider list = %v, want ErrForbidden", err)
	}
}

func TestExpenseSettle(t *testing.T) {
	f := newFixture(t)
	svc := NewExpenseService(expenseStore{f.store}, f.chat)
	ctx := context.Background()

	expense, err := svc.Create(ctx, f.groupID, f.creator.ID, ExpenseInput{Amount: 500, SplitType: models.SplitEqual})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Settle(ctx, f.groupID, expense.ID, f.passenger.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-payer settle = %v, want ErrForbidden", err)
	}
	if err := svc.Settle(ctx, f.groupID, "no-such-expense", f.creator.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown expense = %v, want ErrNotFound", err)
	}

	if err := svc.Settle(ctx, f.groupID, expense.ID, f.creator.ID); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	list, err := svc.List(ctx, f.groupID, f.creator.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || !list[0].Settled {
		t.Errorf("list = %+v, want one settled expense", list)
	}
}
