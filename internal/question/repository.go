package question

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type bankStore interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// BankRepository reads question banks from Postgres. Banks are read-only
// after session creation.
type BankRepository struct {
	db bankStore
}

// NewBankRepository constructs a bank repository over a pgx pool or conn.
func NewBankRepository(db bankStore) *BankRepository {
	return &BankRepository{db: db}
}

const listBankQuestionsSQL = `
SELECT question_id, text, options, correct_index, category, difficulty
FROM bank_questions
WHERE bank_id = ANY($1::uuid[])
ORDER BY bank_id, position`

// ListByBankIDs returns every question belonging to the given banks, in bank
// order.
func (r *BankRepository) ListByBankIDs(ctx context.Context, bankIDs []uuid.UUID) ([]Question, error) {
	ids := make([]string, len(bankIDs))
	for i, id := range bankIDs {
		ids[i] = id.String()
	}
	rows, err := r.db.Query(ctx, listBankQuestionsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("list bank questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var (
			id         uuid.UUID
			q          Question
			category   *string
			difficulty *string
		)
		if err := rows.Scan(&id, &q.Text, &q.Options, &q.CorrectIndex, &category, &difficulty); err != nil {
			return nil, fmt.Errorf("scan bank question: %w", err)
		}
		q.ID = id.String()
		if category != nil {
			q.Category = *category
		}
		if difficulty != nil {
			q.Difficulty = *difficulty
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bank questions: %w", err)
	}
	return questions, nil
}
