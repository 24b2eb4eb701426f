package repository

import (
	"errors"

	repo "stockroom/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgresのエラーコード
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// DBエラーをrepositoryのsentinelに寄せる。該当しなければそのまま返す。
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return errors.Join(repo.ErrDuplicate, err)
	case pgForeignKeyViolation:
		return errors.Join(repo.ErrReferenced, err)
	case pgCheckViolation:
		return errors.Join(repo.ErrCheckViolation, err)
	}
	return err
}
