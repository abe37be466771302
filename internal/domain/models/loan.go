// internal/domain/models/loan.go
package models

// Loan is a loan record with its borrower and repayment transactions.
type Loan struct {
	ID                     int64             `json:"id"`
	LoanCode               *string           `json:"loan_code"`
	UserID                 int64             `json:"user_id"`
	LoanAmount             Number            `json:"loan_amount"`
	LoanCap                Number            `json:"loan_cap"`
	TermMonths             *Number           `json:"term_months,omitempty"`
	IsApproved             Flag              `json:"is_approved"`
	IsAllAmountSpent       *string           `json:"is_all_amount_spent"`
	Status                 string            `json:"status"`
	PaymentCompletedAtDate *string           `json:"payment_completed_at_date"`
	RepaymentRule          *string           `json:"repayment_rule"`
	Description            string            `json:"description"`
	PenaltyID              *Number           `json:"penalty_id"`
	CreatedAt              string            `json:"created_at"`
	UpdatedAt              string            `json:"updated_at"`
	DeletedAt              *string           `json:"deleted_at"`
	User                   *User             `json:"user,omitempty"`
	LoanTransactions       []LoanTransaction `json:"loan_transactions,omitempty"`
}

func (l Loan) EntityID() int64 { return l.ID }

// LoanTransaction is one disbursement or repayment line of a loan.
type LoanTransaction struct {
	ID                  int64   `json:"id"`
	LoanTransactionCode *string `json:"loan_transaction_code"`
	LoanID              int64   `json:"loan_id"`
	OrderID             *Number `json:"order_id"`
	Amount              Number  `json:"amount"`
	Penalty             Number  `json:"penalty"`
	Type                string  `json:"type"`
	Status              *string `json:"status"`
	PaidDate            *string `json:"paid_date"`
	DueDate             *string `json:"due_date"`
	PaymentMethod       *string `json:"payment_method"`
	IsNotified          Flag    `json:"is_notified"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

// LoanUser is a user's loan eligibility record (balance, cap, approval).
type LoanUser struct {
	ID           int64   `json:"id"`
	UserID       int64   `json:"user_id"`
	LoanBalance  Number  `json:"loan_balance"`
	LoanCap      Number  `json:"loan_cap"`
	IsApproved   Flag    `json:"is_approved"`
	ApprovedDate *string `json:"approved_date"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	DeletedAt    *string `json:"deleted_at"`
	User         *User   `json:"user,omitempty"`
}

func (lu LoanUser) EntityID() int64 { return lu.ID }
