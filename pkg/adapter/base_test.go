package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockAdapter(t *testing.T) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLAdapter{DB: db}, mock
}

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	base := &BaseSQLAdapter{}

	assert.False(t, base.IsConnected())
	assert.NoError(t, base.Close())
	assert.ErrorIs(t, base.Exec(ctx, "SELECT 1"), ErrNotConnected)

	_, err := base.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, base.LoadTableColumns(ctx, binder.NewMemoryCatalog()), ErrNotConnected)
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		expectErr bool
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE t").WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE t").WillReturnError(assert.AnError)
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := newMockAdapter(t)
			tt.setupMock(mock)

			err := base.Exec(context.Background(), "CREATE TABLE t (a INTEGER)")
			if tt.expectErr {
				assert.ErrorIs(t, err, assert.AnError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      *Result
		expectErr bool
	}{
		{
			name: "reads all rows",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"region", "Q1"}).
					AddRow("A", int64(10)).
					AddRow("B", nil)
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			want: &Result{
				Columns: []string{"region", "Q1"},
				Rows:    [][]any{{"A", int64(10)}, {"B", nil}},
			},
		},
		{
			name: "query error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
			},
			expectErr: true,
		},
		{
			name: "row error",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"a"}).
					AddRow(int64(1)).
					RowError(0, assert.AnError)
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := newMockAdapter(t)
			tt.setupMock(mock)

			got, err := base.Query(context.Background(), "SELECT * FROM p")
			if tt.expectErr {
				assert.ErrorIs(t, err, assert.AnError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseSQLAdapter_LoadTableColumns(t *testing.T) {
	base, mock := newMockAdapter(t)
	rows := sqlmock.NewRows([]string{"table_schema", "table_name", "column_name"}).
		AddRow("main", "sales", "region").
		AddRow("main", "sales", "quarter").
		AddRow("main", "sales", "amount").
		AddRow("raw", "t", "id")
	mock.ExpectQuery("FROM information_schema.columns").WillReturnRows(rows)

	cat := binder.NewMemoryCatalog()
	require.NoError(t, base.LoadTableColumns(context.Background(), cat))

	cols, err := cat.TableColumns("", "sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "quarter", "amount"}, cols)

	cols, err = cat.TableColumns("raw", "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, cols)
}

func TestBaseSQLAdapter_LoadTableColumnsScanError(t *testing.T) {
	base, mock := newMockAdapter(t)
	rows := sqlmock.NewRows([]string{"table_schema", "table_name"}).AddRow("main", "sales")
	mock.ExpectQuery("FROM information_schema.columns").WillReturnRows(rows)

	err := base.LoadTableColumns(context.Background(), binder.NewMemoryCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan column metadata")
}
