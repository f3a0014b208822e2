package storage_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/itinera/internal/export"
	"github.com/neexbeast/itinera/internal/storage"
	"github.com/neexbeast/itinera/internal/trip"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}
func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// ---- mock pgx.Row ----

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (f *fakeRow) Scan(dest ...any) error { return f.scanFn(dest...) }

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]any
	idx     int
	rowErr  error
	scanErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *int:
			*v = row[i].(int)
		case *string:
			*v = row[i].(string)
		case *[]byte:
			*v = row[i].([]byte)
		case *float64:
			*v = row[i].(float64)
		case *bool:
			*v = row[i].(bool)
		case **time.Time:
			if row[i] == nil {
				*v = nil
			} else {
				t := row[i].(time.Time)
				*v = &t
			}
		case *time.Time:
			*v = row[i].(time.Time)
		}
	}
	return nil
}

// ---- mock MigrationPool ----

type mockMigrationPool struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockMigrationPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.beginFn(ctx)
}

// mockTx is a minimal pgx.Tx implementation for testing migrations.
type mockTx struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.execFn(ctx, sql, args...)
}
func (t *mockTx) Commit(ctx context.Context) error   { return t.commitFn(ctx) }
func (t *mockTx) Rollback(ctx context.Context) error { return t.rollbackFn(ctx) }

// pgx.Tx has many more methods; stub them all out.
func (t *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (t *mockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *mockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *mockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *mockTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *mockTx) Conn() *pgx.Conn { return nil }

// ---- helpers ----

var (
	planID  = uuid.MustParse("5b7e0a52-3c1f-4e55-9a57-0d8f3c2a9b11")
	created = time.Date(2025, 10, 1, 9, 30, 0, 0, time.UTC)
	start   = time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	end     = time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)
)

func sampleRecord() export.Record {
	return export.Record{
		City:        "Barcelona",
		Country:     "Spain",
		Start:       "2025-11-03",
		End:         "2025-11-05",
		Budget:      1200,
		LuxuryLevel: trip.Standard,
		Buffer:      0.1,
		Total:       444,
		Plan:        []export.Day{{Date: "2025-11-03"}, {Date: "2025-11-04"}},
	}
}

func samplePlan() storage.Plan {
	return storage.Plan{
		City:         "Barcelona",
		Start:        start,
		End:          end,
		Budget:       1200,
		LuxuryLevel:  "standard",
		Buffer:       0.1,
		Total:        444,
		Target:       1080,
		WithinTarget: true,
		Strategy:     "none",
		Record:       sampleRecord(),
	}
}

func marshalRecord(t *testing.T, r export.Record) []byte {
	t.Helper()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return b
}

func writeSQLFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// scanPlan fills a GetPlan scan with the sample plan and the given record bytes.
func scanPlan(record []byte) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*uuid.UUID) = planID
		*dest[1].(*string) = "Barcelona"
		*dest[2].(*time.Time) = start
		*dest[3].(*time.Time) = end
		*dest[4].(*float64) = 1200
		*dest[5].(*string) = "standard"
		*dest[6].(*float64) = 0.1
		*dest[7].(*float64) = 444
		*dest[8].(*float64) = 1080
		*dest[9].(*bool) = true
		*dest[10].(*string) = "none"
		*dest[11].(*[]byte) = record
		*dest[12].(*time.Time) = created
		return nil
	}
}

// ---- SavePlan tests ----

func TestSavePlan_AssignsIDAndCreatedAt(t *testing.T) {
	var capturedArgs []any
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, sql string, args ...any) pgx.Row {
			assert.Contains(t, sql, "INSERT INTO plans")
			capturedArgs = args
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*time.Time) = created
				return nil
			}}
		},
	}

	p := samplePlan()
	repo := storage.NewRepositoryWithQuerier(q)
	require.NoError(t, repo.SavePlan(context.Background(), &p))

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, created, p.CreatedAt)
	require.Len(t, capturedArgs, 12)
	assert.Equal(t, p.ID, capturedArgs[0])
	assert.Equal(t, "Barcelona", capturedArgs[1])
	assert.Equal(t, "standard", capturedArgs[5])
	assert.Equal(t, true, capturedArgs[9])

	var rec export.Record
	require.NoError(t, json.Unmarshal(capturedArgs[11].([]byte), &rec))
	assert.Equal(t, sampleRecord(), rec)
}

func TestSavePlan_KeepsGivenID(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			assert.Equal(t, planID, args[0])
			return &fakeRow{scanFn: func(dest ...any) error { return nil }}
		},
	}

	p := samplePlan()
	p.ID = planID
	require.NoError(t, storage.NewRepositoryWithQuerier(q).SavePlan(context.Background(), &p))
	assert.Equal(t, planID, p.ID)
}

func TestSavePlan_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return fmt.Errorf("db error") }}
		},
	}

	p := samplePlan()
	err := storage.NewRepositoryWithQuerier(q).SavePlan(context.Background(), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting plan")
}

// ---- GetPlan tests ----

func TestGetPlan_Found(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			assert.Equal(t, []any{planID}, args)
			return &fakeRow{scanFn: scanPlan(marshalRecord(t, sampleRecord()))}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	p, err := repo.GetPlan(context.Background(), planID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, planID, p.ID)
	assert.Equal(t, 1080.0, p.Target)
	assert.True(t, p.WithinTarget)
	assert.Equal(t, sampleRecord(), p.Record)
	assert.Equal(t, created, p.CreatedAt)
}

func TestGetPlan_NotFound(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	p, err := storage.NewRepositoryWithQuerier(q).GetPlan(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetPlan_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return fmt.Errorf("connection reset") }}
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).GetPlan(context.Background(), planID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying plan")
}

func TestGetPlan_BadJSON(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: scanPlan([]byte("not-valid-json"))}
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).GetPlan(context.Background(), planID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

// ---- ListPlans tests ----

var listColumns = []string{"id", "city", "start_date", "end_date", "luxury_level", "total", "within_target", "created_at"}

func TestListPlans_DefaultQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, city, start_date, end_date, luxury_level, total, within_target, created_at FROM plans ORDER BY created_at DESC LIMIT 20",
	)).WillReturnRows(pgxmock.NewRows(listColumns).
		AddRow(planID.String(), "Barcelona", start, end, "standard", 444.0, true, created).
		AddRow("0f0c7a4e-8d6b-4b43-8a43-5f2e3f9d6c01", "Prague", start, end, "luxury", 2310.5, false, created.Add(-time.Hour)))

	repo := storage.NewRepositoryWithQuerier(mock)
	got, err := repo.ListPlans(context.Background(), storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, planID, got[0].ID)
	assert.Equal(t, "Prague", got[1].City)
	assert.False(t, got[1].WithinTarget)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPlans_Filters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	within := false
	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM plans WHERE lower(city) = lower($1) AND luxury_level = $2 AND within_target = $3 ORDER BY created_at DESC LIMIT 100",
	)).WithArgs("barcelona", "luxury", false).
		WillReturnRows(pgxmock.NewRows(listColumns))

	repo := storage.NewRepositoryWithQuerier(mock)
	got, err := repo.ListPlans(context.Background(), storage.ListFilter{
		City: "barcelona", LuxuryLevel: "luxury", WithinTarget: &within, Limit: 500,
	})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPlans_QueryError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return nil, fmt.Errorf("query failed")
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListPlans(context.Background(), storage.ListFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying plans")
}

func TestListPlans_ScanError(t *testing.T) {
	rows := &fakeRows{
		rows:    [][]any{{planID.String(), "Barcelona", start, end, "standard", 444.0, true, created}},
		scanErr: fmt.Errorf("scan failed"),
	}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListPlans(context.Background(), storage.ListFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestListPlans_BadID(t *testing.T) {
	rows := &fakeRows{
		rows: [][]any{{"not-a-uuid", "Barcelona", start, end, "standard", 444.0, true, created}},
	}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListPlans(context.Background(), storage.ListFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing plan id")
}

func TestListPlans_RowsErr(t *testing.T) {
	rows := &fakeRows{rowErr: fmt.Errorf("rows iteration error")}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	_, err := storage.NewRepositoryWithQuerier(q).ListPlans(context.Background(), storage.ListFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

// ---- NewRepository ----

func TestNewRepository_NotNil(t *testing.T) {
	repo := storage.NewRepository(nil)
	assert.NotNil(t, repo)
}

// ---- RunMigrations tests ----

// migrationTx records executed statements. applied lists migration names
// already present in schema_migrations.
func migrationTx(executed *[]string, applied map[string]bool) *mockTx {
	return &mockTx{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if strings.HasPrefix(sql, "INSERT INTO schema_migrations") {
				if applied[args[0].(string)] {
					return pgconn.NewCommandTag("INSERT 0 0"), nil
				}
				return pgconn.NewCommandTag("INSERT 0 1"), nil
			}
			if strings.Contains(sql, "CREATE TABLE IF NOT EXISTS schema_migrations") {
				return pgconn.NewCommandTag("CREATE TABLE"), nil
			}
			*executed = append(*executed, sql)
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
}

func TestRunMigrations_MissingDir(t *testing.T) {
	err := storage.RunMigrations(context.Background(), nil, "/nonexistent/dir")
	require.Error(t, err)
}

func TestRunMigrations_EmptyDir(t *testing.T) {
	err := storage.RunMigrations(context.Background(), nil, t.TempDir())
	require.NoError(t, err)
}

func TestRunMigrations_Success(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")
	writeSQLFile(t, dir, "README.md", "not a migration")

	var executed []string
	tx := migrationTx(&executed, nil)
	begins := 0
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { begins++; return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1;"}, executed)
	assert.Equal(t, 2, begins)
}

func TestRunMigrations_SkipsApplied(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_a.sql", "SELECT 1;")
	writeSQLFile(t, dir, "002_b.sql", "SELECT 2;")

	var executed []string
	tx := migrationTx(&executed, map[string]bool{"001_a.sql": true})
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	require.NoError(t, storage.RunMigrations(context.Background(), pool, dir))
	assert.Equal(t, []string{"SELECT 2;"}, executed)
}

func TestRunMigrations_BeginError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return nil, fmt.Errorf("cannot begin") },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema_migrations")
}

func TestRunMigrations_ExecErrorRollsBack(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "INVALID SQL;")

	rolledBack := false
	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			if sql == "INVALID SQL;" {
				return pgconn.CommandTag{}, fmt.Errorf("syntax error")
			}
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
		commitFn: func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error {
			rolledBack = true
			return nil
		},
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing migration 001_test.sql")
	assert.True(t, rolledBack)
}

func TestRunMigrations_CommitError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
		commitFn:   func(_ context.Context) error { return fmt.Errorf("commit failed") },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
}

func TestRunMigrations_SortsFilesLexicographically(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "003_c.sql", "SELECT 3;")
	writeSQLFile(t, dir, "001_a.sql", "SELECT 1;")
	writeSQLFile(t, dir, "002_b.sql", "SELECT 2;")

	var executed []string
	tx := migrationTx(&executed, nil)
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1;", "SELECT 2;", "SELECT 3;"}, executed)
}

func TestRunMigrations_RepositoryMigrations(t *testing.T) {
	var executed []string
	tx := migrationTx(&executed, nil)
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	require.NoError(t, storage.RunMigrations(context.Background(), pool, "../../migrations"))
	require.NotEmpty(t, executed)
	assert.Contains(t, executed[0], "CREATE TABLE IF NOT EXISTS plans")
}

// ---- Connect tests ----

func TestConnect_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := storage.Connect(ctx, "postgres://invalid-host-xyz:5432/db?sslmode=disable")
	require.Error(t, err)
}
