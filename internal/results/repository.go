package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

type resultsStore interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrNotFound is returned when a session row does not exist.
var ErrNotFound = errors.New("session record not found")

// Repository persists session records and final results in Postgres. Live
// gameplay never touches it; writes happen only at session boundaries, and
// reads serve the session list and results endpoints.
type Repository struct {
	db     resultsStore
	recent *RecentIndex
	logger zerolog.Logger
}

// NewRepository constructs a results repository. The recent index may be nil.
func NewRepository(db resultsStore, recent *RecentIndex, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		recent: recent,
		logger: logger.With().Str("component", "results_repo").Logger(),
	}
}

const insertSessionSQL = `
INSERT INTO sessions (id, code, teacher_id, game_type, teacher_mode, status,
	time_limit_seconds, max_players, question_source, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// CreateSession inserts the session row at the creation boundary.
func (r *Repository) CreateSession(ctx context.Context, rec SessionRecord) error {
	_, err := r.db.Exec(ctx, insertSessionSQL,
		rec.ID, rec.Code, rec.TeacherID, rec.GameType, rec.TeacherMode, rec.Status,
		rec.TimeLimitSeconds, rec.MaxPlayers, rec.QuestionSource, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if r.recent != nil {
		if err := r.recent.Add(ctx, rec.TeacherID, rec.ID, rec.CreatedAt); err != nil {
			r.logger.Warn().Err(err).Str("session_id", rec.ID.String()).Msg("recent index update failed")
		}
	}
	return nil
}

const finalizeSessionSQL = `
UPDATE sessions
SET status = 'ended', started_at = $2, ended_at = $3
WHERE id = $1`

const insertResultSQL = `
INSERT INTO session_results (session_id, player_id, display_name, is_teacher, rank,
	total_score, best_streak, questions_answered, questions_correct, avg_time_ms,
	games_played, credits_used)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const insertAwardSQL = `
INSERT INTO session_awards (session_id, name, player_id, display_name, value)
VALUES ($1, $2, $3, $4, $5)`

// RecordEnd finalizes the session row and writes per-player results and
// awards at the end-of-session boundary.
func (r *Repository) RecordEnd(ctx context.Context, end SessionEnd) error {
	if _, err := r.db.Exec(ctx, finalizeSessionSQL, end.SessionID, end.StartedAt, end.EndedAt); err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}

	for _, p := range end.Players {
		if _, err := r.db.Exec(ctx, insertResultSQL,
			end.SessionID, p.PlayerID, p.DisplayName, p.IsTeacher, p.Rank,
			p.TotalScore, p.BestStreak, p.QuestionsAnswered, p.QuestionsCorrect,
			p.AvgAnswerMs, p.GamesPlayed, p.CreditsUsed); err != nil {
			return fmt.Errorf("insert player result: %w", err)
		}
	}

	for _, a := range end.Awards {
		if _, err := r.db.Exec(ctx, insertAwardSQL,
			end.SessionID, a.Name, a.PlayerID, a.DisplayName, a.Value); err != nil {
			return fmt.Errorf("insert award: %w", err)
		}
	}
	return nil
}

const sessionColumns = `id, code, teacher_id, game_type, teacher_mode, status,
	time_limit_seconds, max_players, question_source, created_at, started_at, ended_at`

// ListByTeacher returns the teacher's latest sessions, newest first. The
// Redis recency index serves the id ordering when warm; Postgres is the
// fallback and the authority.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID uuid.UUID, limit int) ([]SessionRecord, error) {
	if r.recent != nil {
		ids, err := r.recent.Latest(ctx, teacherID, limit)
		if err != nil {
			r.logger.Warn().Err(err).Msg("recent index read failed")
		} else if len(ids) > 0 {
			recs, err := r.listByIDs(ctx, ids)
			if err == nil && len(recs) == len(ids) {
				return recs, nil
			}
		}
	}

	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+`
		FROM sessions WHERE teacher_id = $1
		ORDER BY created_at DESC LIMIT $2`, teacherID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *Repository) listByIDs(ctx context.Context, ids []uuid.UUID) ([]SessionRecord, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+`
		FROM sessions WHERE id = ANY($1::uuid[])`, raw)
	if err != nil {
		return nil, fmt.Errorf("list sessions by id: %w", err)
	}
	defer rows.Close()

	recs, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]SessionRecord, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}
	ordered := make([]SessionRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			ordered = append(ordered, rec)
		}
	}
	return ordered, nil
}

// GetByCode returns the most recent session row for a code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*SessionRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+`
		FROM sessions WHERE code = $1
		ORDER BY created_at DESC LIMIT 1`, code)
	rec, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// GetResults loads the final leaderboard, stats, and awards for a session.
func (r *Repository) GetResults(ctx context.Context, sessionID uuid.UUID) (*SessionResults, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+`
		FROM sessions WHERE id = $1`, sessionID)
	rec, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	out := &SessionResults{Session: *rec}

	rows, err := r.db.Query(ctx, `SELECT player_id, display_name, is_teacher, rank,
		total_score, best_streak, questions_answered, questions_correct, avg_time_ms,
		games_played, credits_used
		FROM session_results WHERE session_id = $1 ORDER BY rank`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p PlayerResult
		if err := rows.Scan(&p.PlayerID, &p.DisplayName, &p.IsTeacher, &p.Rank,
			&p.TotalScore, &p.BestStreak, &p.QuestionsAnswered, &p.QuestionsCorrect,
			&p.AvgAnswerMs, &p.GamesPlayed, &p.CreditsUsed); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out.Players = append(out.Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	awardRows, err := r.db.Query(ctx, `SELECT name, player_id, display_name, value
		FROM session_awards WHERE session_id = $1 ORDER BY name`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	defer awardRows.Close()
	for awardRows.Next() {
		var a AwardRecord
		if err := awardRows.Scan(&a.Name, &a.PlayerID, &a.DisplayName, &a.Value); err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		out.Awards = append(out.Awards, a)
	}
	if err := awardRows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func scanSessions(rows pgx.Rows) ([]SessionRecord, error) {
	var recs []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func scanSession(row pgx.Row) (*SessionRecord, error) {
	var rec SessionRecord
	if err := row.Scan(&rec.ID, &rec.Code, &rec.TeacherID, &rec.GameType, &rec.TeacherMode,
		&rec.Status, &rec.TimeLimitSeconds, &rec.MaxPlayers, &rec.QuestionSource,
		&rec.CreatedAt, &rec.StartedAt, &rec.EndedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
