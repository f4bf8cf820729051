// Пакет repository — PostgreSQL-хранилище каталога файлов и ledger
// запросов доступа. Запросы пишутся руками на SQL поверх pgx; каждая
// таблица получает свой репозиторий, общие примитивы собраны здесь.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound — запрошенной записи нет в БД.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — вставка нарушила уникальность (пара или email уже заняты).
	ErrConflict = errors.New("конфликт — запись уже существует")
)

// DBTX — минимальный срез pgx, достаточный репозиториям.
// Ему удовлетворяют и *pgxpool.Pool, и pgx.Tx, поэтому один и тот же
// репозиторий работает как сам по себе, так и внутри RunInTx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner открывает транзакции над пулом. Сервисы получают его вместо
// пула, чтобы не знать про pgxpool напрямую.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner над пулом соединений.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn в транзакции: ошибка fn откатывает её,
// успешное завершение коммитит.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("не удалось открыть транзакцию: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback после Commit — no-op

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// isUniqueViolation распознаёт SQLSTATE 23505 (unique_violation).
// Репозитории переводят её в ErrConflict.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
