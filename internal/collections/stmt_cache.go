package collections

import (
	"context"
	"database/sql"
	"fmt"
)

// prepared returns or prepares and caches a statement keyed by its SQL text.
func (s *Store) prepared(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	// fast path read
	s.stmtMu.RLock()
	stmt, ok := s.stmts[sqlText]
	s.stmtMu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	if stmt, ok := s.stmts[sqlText]; ok {
		return stmt, nil
	}
	stmt, err := s.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	s.stmts[sqlText] = stmt
	return stmt, nil
}

func (s *Store) closeStatements() {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	for k, stmt := range s.stmts {
		_ = stmt.Close()
		delete(s.stmts, k)
	}
}
