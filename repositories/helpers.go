package repositories

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Единый предикат "живой записи": все запросы репозиториев фильтруют
// мягко удалённые строки только через него, бизнес-логика флаг удаления
// не перепроверяет.
const notDeleted = "deleted_at IS NULL"

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

func intArray(ids []int) interface{} {
	return pq.Array(ids)
}
