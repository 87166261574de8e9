package domain

import "time"

const TransactionStatusCompleted = "completed"

// Transaction is a marketplace purchase as recorded in the relational store.
type Transaction struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyer_id"`
	PromptID  string    `json:"prompt_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Completed reports whether the transaction counts toward revenue.
func (t Transaction) Completed() bool {
	return t.Status == TransactionStatusCompleted
}

// UserProfile is the subset of a marketplace user the analytics read.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
