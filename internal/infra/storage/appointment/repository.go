package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/psqlbuilder"
)

const tableName = "appointments"

var columns = []string{
	"id",
	"service_id",
	"business_id",
	"customer_id",
	"appointment_date",
	"start_time",
	"end_time",
	"status",
	"notes",
	"recurring_id",
	"service_name",
	"price",
	"payment_reference",
	"created_at",
	"updated_at",
}

// Repository репозиторий записей на услуги (PostgreSQL)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает запись.
// Пересечение с активной записью на тот же слот отсекается уникальным индексом
// appointments_active_slot_uidx и возвращается как ErrConflict.
func (r *Repository) Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(tableName).
		Columns(
			"service_id",
			"business_id",
			"customer_id",
			"appointment_date",
			"start_time",
			"end_time",
			"status",
			"notes",
			"recurring_id",
			"service_name",
			"price",
		).
		Values(
			appt.ServiceID,
			appt.BusinessID,
			appt.CustomerID,
			appt.Date,
			appt.StartTime,
			appt.EndTime,
			appt.Status,
			appt.Notes,
			appt.RecurringID,
			appt.ServiceName,
			appt.Price,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&appt.ID, &createdAt, &updatedAt)
	if err != nil {
		if isPQConflict(err) {
			return nil, fmt.Errorf("%w: Create: %v", ErrConflict, err)
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	appt.CreatedAt = createdAt.Time
	appt.UpdatedAt = updatedAt.Time

	return appt, nil
}

// GetByID получает запись по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate получает запись по ID с блокировкой строки (внутри транзакции)
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.getByID(ctx, id, dbmetrics.IsInTransaction(ctx))
}

func (r *Repository) getByID(ctx context.Context, id int64, forUpdate bool) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	appt, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan appointment: %v", ErrScanRow, err)
	}

	return appt, nil
}

// GetByIDs получает записи по списку ID в порядке дат
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Appointment, error) {
	if len(ids) == 0 {
		return []*domain.Appointment{}, nil
	}

	query, args, err := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("appointment_date ASC, start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByIDs - build select query: %v", ErrBuildQuery, err)
	}

	return r.query(ctx, "GetByIDs", query, args)
}

// GetActiveByResourceAndDate получает активные (pending, confirmed) записи на услугу бизнеса в дату.
// Внутри транзакции строки блокируются (FOR UPDATE) до её завершения.
func (r *Repository) GetActiveByResourceAndDate(ctx context.Context, businessID, serviceID int64, date time.Time) ([]*domain.Appointment, error) {
	builder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{
			"business_id":      businessID,
			"service_id":       serviceID,
			"appointment_date": date,
			"status":           statusStrings(domain.ActiveStatuses),
		}).
		OrderBy("start_time ASC")

	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveByResourceAndDate - build select query: %v", ErrBuildQuery, err)
	}

	return r.query(ctx, "GetActiveByResourceAndDate", query, args)
}

// GetWithFilter получает записи с фильтрацией по бизнесу, клиенту, услуге, серии, периоду и статусам
func (r *Repository) GetWithFilter(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
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
	if filter.RecurringID != nil {
		builder = builder.Where(squirrel.Eq{"recurring_id": *filter.RecurringID})
	}
	if filter.StartDate != nil {
		builder = builder.Where(squirrel.GtOrEq{"appointment_date": *filter.StartDate})
	}
	if filter.EndDate != nil {
		builder = builder.Where(squirrel.LtOrEq{"appointment_date": *filter.EndDate})
	}
	if len(filter.Statuses) > 0 {
		builder = builder.Where(squirrel.Eq{"status": statusStrings(filter.Statuses)})
	}

	query, args, err := builder.OrderBy("appointment_date ASC, start_time ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - build select query: %v", ErrBuildQuery, err)
	}

	return r.query(ctx, "GetWithFilter", query, args)
}

// UpdateStatus меняет статус с from на to.
// Если статус уже не from, возвращает ErrStatusConflict; если записи нет - ErrAppointmentNotFound.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("status", to).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}

	return nil
}

// SetPaymentReference сохраняет идентификатор платежной сессии
func (r *Repository) SetPaymentReference(ctx context.Context, id int64, reference string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("payment_reference", reference).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: SetPaymentReference - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: SetPaymentReference - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: SetPaymentReference - get rows affected: %v", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		return ErrAppointmentNotFound
	}

	return nil
}

func (r *Repository) query(ctx context.Context, op, query string, args []interface{}) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		if isPQConflict(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrConflict, op, err)
		}
		return nil, fmt.Errorf("%w: %s - execute query: %v", ErrExecQuery, op, err)
	}
	defer rows.Close()

	appointments := make([]*domain.Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %s - scan row: %v", ErrScanRow, op, err)
		}
		appointments = append(appointments, appt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s - rows error: %v", ErrScanRow, op, err)
	}

	return appointments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var (
		appt                 domain.Appointment
		notes, paymentRef    sql.NullString
		recurringID          sql.NullInt64
		createdAt, updatedAt sql.NullTime
	)

	err := row.Scan(
		&appt.ID,
		&appt.ServiceID,
		&appt.BusinessID,
		&appt.CustomerID,
		&appt.Date,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&notes,
		&recurringID,
		&appt.ServiceName,
		&appt.Price,
		&paymentRef,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	appt.Date = domain.DateOnly(appt.Date)
	if notes.Valid {
		appt.Notes = &notes.String
	}
	if paymentRef.Valid {
		appt.PaymentReference = &paymentRef.String
	}
	if recurringID.Valid {
		appt.RecurringID = &recurringID.Int64
	}
	appt.CreatedAt = createdAt.Time
	appt.UpdatedAt = updatedAt.Time

	return &appt, nil
}

func statusStrings(statuses []domain.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
