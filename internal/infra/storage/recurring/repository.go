package recurring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/psqlbuilder"
)

const tableName = "recurring_appointments"

var columns = []string{
	"id",
	"business_id",
	"service_id",
	"customer_id",
	"pattern",
	"day_of_week",
	"day_of_month",
	"start_date",
	"end_date",
	"start_time",
	"end_time",
	"notes",
	"status",
	"appointment_ids",
	"materialized_through",
	"created_at",
	"updated_at",
}

// Repository репозиторий повторяющихся записей (PostgreSQL)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новую серию с пустым списком записей
func (r *Repository) Create(ctx context.Context, series *domain.RecurringAppointment) (*domain.RecurringAppointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	var dayOfWeek *int
	if series.DayOfWeek != nil {
		d := int(*series.DayOfWeek)
		dayOfWeek = &d
	}

	query, args, err := psqlbuilder.Insert(tableName).
		Columns(
			"business_id",
			"service_id",
			"customer_id",
			"pattern",
			"day_of_week",
			"day_of_month",
			"start_date",
			"end_date",
			"start_time",
			"end_time",
			"notes",
			"status",
		).
		Values(
			series.BusinessID,
			series.ServiceID,
			series.CustomerID,
			series.Pattern,
			dayOfWeek,
			series.DayOfMonth,
			series.StartDate,
			series.EndDate,
			series.StartTime,
			series.EndTime,
			series.Notes,
			series.Status,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&series.ID, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	series.AppointmentIDs = []int64{}
	series.CreatedAt = createdAt.Time
	series.UpdatedAt = updatedAt.Time

	return series, nil
}

// GetByID получает серию по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.RecurringAppointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"id": id})
	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	series, err := scanSeries(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeriesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan series: %v", ErrScanRow, err)
	}

	return series, nil
}

// GetWithFilter получает серии по фильтру (бизнес, клиент, услуга, статус)
func (r *Repository) GetWithFilter(ctx context.Context, filter domain.RecurringFilter) ([]*domain.RecurringAppointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).From(tableName)
	if filter.BusinessID != nil {
		builder = builder.Where(squirrel.Eq{"business_id": *filter.BusinessID})
	}
	if filter.CustomerID != nil {
		builder = builder.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.ServiceID != nil {
		builder = builder.Where(squirrel.Eq{"service_id": *filter.ServiceID})
	}
	if filter.Status != nil {
		builder = builder.Where(squirrel.Eq{"status": *filter.Status})
	}

	query, args, err := builder.OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]*domain.RecurringAppointment, 0)
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: GetWithFilter - scan row: %v", ErrScanRow, err)
		}
		result = append(result, series)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - rows error: %v", ErrScanRow, err)
	}

	return result, nil
}

// UpdateStatus меняет статус серии с from на to
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.RecurrenceStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("status", to).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	return r.execOne(ctx, executor, "UpdateStatus", query, args, id)
}

// AppendAppointment дописывает ID записи в конец appointment_ids и сдвигает курсор материализации.
// Список только растет: элементы никогда не удаляются и не переставляются.
func (r *Repository) AppendAppointment(ctx context.Context, id, appointmentID int64, date time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("appointment_ids", squirrel.Expr("array_append(appointment_ids, ?::bigint)", appointmentID)).
		Set("materialized_through", cursorExpr(date)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: AppendAppointment - build update query: %v", ErrBuildQuery, err)
	}

	return r.execOne(ctx, executor, "AppendAppointment", query, args, id)
}

// AdvanceCursor отмечает дату как обработанную без создания записи (пропущенное вхождение)
func (r *Repository) AdvanceCursor(ctx context.Context, id int64, date time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("materialized_through", cursorExpr(date)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: AdvanceCursor - build update query: %v", ErrBuildQuery, err)
	}

	return r.execOne(ctx, executor, "AdvanceCursor", query, args, id)
}

func (r *Repository) execOne(ctx context.Context, executor DBExecutor, op, query string, args []interface{}, id int64) error {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}

	return nil
}

// cursorExpr курсор только растет
func cursorExpr(date time.Time) squirrel.Sqlizer {
	return squirrel.Expr("GREATEST(COALESCE(materialized_through, ?::date), ?::date)", date, date)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeries(row rowScanner) (*domain.RecurringAppointment, error) {
	var (
		s                    domain.RecurringAppointment
		dayOfWeek            sql.NullInt32
		dayOfMonth           sql.NullInt32
		endDate, cursor      sql.NullTime
		notes                sql.NullString
		ids                  pq.Int64Array
		createdAt, updatedAt sql.NullTime
	)

	err := row.Scan(
		&s.ID,
		&s.BusinessID,
		&s.ServiceID,
		&s.CustomerID,
		&s.Pattern,
		&dayOfWeek,
		&dayOfMonth,
		&s.StartDate,
		&endDate,
		&s.StartTime,
		&s.EndTime,
		&notes,
		&s.Status,
		&ids,
		&cursor,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.StartDate = domain.DateOnly(s.StartDate)
	if dayOfWeek.Valid {
		d := time.Weekday(dayOfWeek.Int32)
		s.DayOfWeek = &d
	}
	if dayOfMonth.Valid {
		d := int(dayOfMonth.Int32)
		s.DayOfMonth = &d
	}
	if endDate.Valid {
		d := domain.DateOnly(endDate.Time)
		s.EndDate = &d
	}
	if cursor.Valid {
		d := domain.DateOnly(cursor.Time)
		s.MaterializedThrough = &d
	}
	if notes.Valid {
		s.Notes = &notes.String
	}
	s.AppointmentIDs = []int64(ids)
	if s.AppointmentIDs == nil {
		s.AppointmentIDs = []int64{}
	}
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time

	return &s, nil
}
