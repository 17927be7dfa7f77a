package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/ingredia/internal/domain"
)

type AnswerStore struct {
	db *sql.DB
}

func NewAnswerStore(db *sql.DB) *AnswerStore {
	return &AnswerStore{db: db}
}

func (s *AnswerStore) Create(ctx context.Context, productID int64, question, answer string) (*domain.Answer, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (product_id, question, answer) VALUES (?, ?, ?)
	`, productID, question, answer)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *AnswerStore) GetByID(ctx context.Context, id int64) (*domain.Answer, error) {
	a := &domain.Answer{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, question, answer, created_at FROM answers WHERE id = ?
	`, id).Scan(&a.ID, &a.ProductID, &a.Question, &a.Answer, &a.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}

	return a, nil
}

// ListByProductID returns the product's answers in the order they were asked.
func (s *AnswerStore) ListByProductID(ctx context.Context, productID int64) ([]*domain.Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, question, answer, created_at FROM answers
		WHERE product_id = ? ORDER BY id ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	answers := make([]*domain.Answer, 0)
	for rows.Next() {
		a := &domain.Answer{}
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Question, &a.Answer, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answers: %w", err)
	}

	return answers, nil
}

func (s *AnswerStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM answers WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete answer: %w", err)
	}
	return expectOneRow(result, "answer")
}
