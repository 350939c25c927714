package errtranslator

import (
	"errors"

	mssql "github.com/microsoft/go-mssqldb"
)

var mssqlDuplicateCodes = map[int32]bool{
	2601: true, // unique index
	2627: true, // unique constraint
}

type MssqlErrTranslator struct{}

func (m *MssqlErrTranslator) Translate(err error) error {
	var mssqlErr mssql.Error
	if errors.As(err, &mssqlErr) && mssqlDuplicateCodes[mssqlErr.Number] {
		return ErrDuplicatedKey{Code: int(mssqlErr.Number), Message: mssqlErr.Message}
	}
	return err
}
