// Package storage provides an optional Postgres-backed persistence
// layer for the Case Store (C3) and Knowledge Base (C13). The
// in-memory implementations of those components remain the default;
// this package only matters when a caller wants cases and rules to
// survive a process restart.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/knowledge"
)

// Store is a bun-backed persistence port. It is written independently
// of casestore.Store and knowledge.Base; a caller wires it as a
// write-through/warm-start adjunct, not a drop-in replacement.
type Store struct {
	db *bun.DB
}

// Open connects to dsn using the pgdriver/pgdialect stack.
func Open(dsn string) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &Store{db: bun.NewDB(sqldb, pgdialect.New())}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.DB.Close()
}

// InitSchema creates the backing tables if they don't already exist.
func (s *Store) InitSchema(ctx context.Context) error {
	models := []any{
		(*caseModel)(nil),
		(*ruleModel)(nil),
		(*exceptionModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

type caseModel struct {
	bun.BaseModel `bun:"table:cases,alias:c"`

	CaseID            string            `bun:"case_id,pk"`
	Timestamp         time.Time         `bun:"timestamp"`
	Headers           []string          `bun:"headers,type:jsonb"`
	NormalizedHeaders []string          `bun:"normalized_headers,type:jsonb"`
	Matches           []domain.HeaderMatch `bun:"matches,type:jsonb"`
	Confidence        float64           `bun:"confidence"`
	WasAutoApproved   bool              `bun:"was_auto_approved"`
	HumanCorrections  map[string]string `bun:"human_corrections,type:jsonb"`
	Metadata          map[string]any    `bun:"metadata,type:jsonb"`
}

func newCaseModel(rec domain.CaseRecord) *caseModel {
	return &caseModel{
		CaseID:            rec.CaseID,
		Timestamp:         rec.Timestamp,
		Headers:           rec.Headers,
		NormalizedHeaders: rec.NormalizedHeaders,
		Matches:           rec.Matches,
		Confidence:        rec.Confidence,
		WasAutoApproved:   rec.WasAutoApproved,
		HumanCorrections:  rec.HumanCorrections,
		Metadata:          rec.Metadata,
	}
}

func (m *caseModel) toDomain() domain.CaseRecord {
	return domain.CaseRecord{
		CaseID:            m.CaseID,
		Timestamp:         m.Timestamp,
		Headers:           m.Headers,
		NormalizedHeaders: m.NormalizedHeaders,
		Matches:           m.Matches,
		Confidence:        m.Confidence,
		WasAutoApproved:   m.WasAutoApproved,
		HumanCorrections:  m.HumanCorrections,
		Metadata:          m.Metadata,
	}
}

// SaveCase upserts one Case Store record.
func (s *Store) SaveCase(ctx context.Context, rec domain.CaseRecord) error {
	_, err := s.db.NewInsert().Model(newCaseModel(rec)).On("CONFLICT (case_id) DO UPDATE").Exec(ctx)
	return err
}

// LoadCases returns every persisted case record, for warm-starting an
// in-memory casestore.Store at process boot.
func (s *Store) LoadCases(ctx context.Context) ([]domain.CaseRecord, error) {
	var models []caseModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.CaseRecord, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out, nil
}

type ruleModel struct {
	bun.BaseModel `bun:"table:knowledge_rules,alias:r"`

	ID        string `bun:"id,pk"`
	Field     string `bun:"field"`
	Condition string `bun:"condition"`
	Message   string `bun:"message"`
	Severity  string `bun:"severity"`
	Category  string `bun:"category"`
}

func newRuleModel(r knowledge.Rule) *ruleModel {
	return &ruleModel{
		ID:        r.ID,
		Field:     r.Field,
		Condition: r.Condition,
		Message:   r.Message,
		Severity:  string(r.Severity),
		Category:  r.Category,
	}
}

func (m *ruleModel) toDomain() knowledge.Rule {
	return knowledge.Rule{
		ID:        m.ID,
		Field:     m.Field,
		Condition: m.Condition,
		Message:   m.Message,
		Severity:  domain.Severity(m.Severity),
		Category:  m.Category,
	}
}

// SaveRule upserts one Knowledge Base rule.
func (s *Store) SaveRule(ctx context.Context, r knowledge.Rule) error {
	_, err := s.db.NewInsert().Model(newRuleModel(r)).On("CONFLICT (id) DO UPDATE").Exec(ctx)
	return err
}

// LoadRules returns every persisted rule, for warm-starting an
// in-memory knowledge.Base at process boot.
func (s *Store) LoadRules(ctx context.Context) ([]knowledge.Rule, error) {
	var models []ruleModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]knowledge.Rule, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out, nil
}

type exceptionModel struct {
	bun.BaseModel `bun:"table:knowledge_exceptions,alias:e"`

	Key                   string         `bun:"key,pk"`
	Field                 string         `bun:"field"`
	OriginalValue         string         `bun:"original_value"`
	WasError              bool           `bun:"was_error"`
	CorrectInterpretation string         `bun:"correct_interpretation"`
	DiagnosticContext     map[string]any `bun:"diagnostic_context,type:jsonb"`
	Count                 int            `bun:"count"`
}

func newExceptionModel(key string, e knowledge.LearnedException) *exceptionModel {
	return &exceptionModel{
		Key:                   key,
		Field:                 e.Field,
		OriginalValue:         e.OriginalValue,
		WasError:              e.WasError,
		CorrectInterpretation: e.CorrectInterpretation,
		DiagnosticContext:     e.DiagnosticContext,
		Count:                 e.Count,
	}
}

func (m *exceptionModel) toDomain() knowledge.LearnedException {
	return knowledge.LearnedException{
		Field:                 m.Field,
		OriginalValue:         m.OriginalValue,
		WasError:              m.WasError,
		CorrectInterpretation: m.CorrectInterpretation,
		DiagnosticContext:     m.DiagnosticContext,
		Count:                 m.Count,
	}
}

// SaveException upserts one learned correction, keyed the same way
// knowledge.Base dedups in memory.
func (s *Store) SaveException(ctx context.Context, key string, e knowledge.LearnedException) error {
	_, err := s.db.NewInsert().Model(newExceptionModel(key, e)).On("CONFLICT (key) DO UPDATE").Exec(ctx)
	return err
}

// LoadExceptions returns every persisted learned exception.
func (s *Store) LoadExceptions(ctx context.Context) (map[string]knowledge.LearnedException, error) {
	var models []exceptionModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]knowledge.LearnedException, len(models))
	for _, m := range models {
		out[m.Key] = m.toDomain()
	}
	return out, nil
}
