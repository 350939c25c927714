package errtranslator

import (
	"errors"

	"github.com/lib/pq"
)

const postgresUniqueViolation = pq.ErrorCode("23505")

type PostgresErrTranslator struct{}

func (p *PostgresErrTranslator) Translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == postgresUniqueViolation {
		dup := ErrDuplicatedKey{Code: string(pqErr.Code), Message: pqErr.Message}
		if pqErr.Column != "" {
			dup.Columns = []string{pqErr.Column}
		}
		return dup
	}
	return err
}
