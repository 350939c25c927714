package errtranslator

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

type SqliteErrTranslator struct{}

func (s *SqliteErrTranslator) Translate(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return ErrDuplicatedKey{
			Code:    int(sqliteErr.ExtendedCode),
			Message: sqliteErr.Error(),
			Columns: sqliteConstraintColumns(sqliteErr.Error()),
		}
	}
	return err
}

// "UNIQUE constraint failed: contact.email, contact.phone" => [email phone]
func sqliteConstraintColumns(message string) []string {
	idx := strings.Index(message, "failed: ")
	if idx < 0 {
		return nil
	}

	var columns []string
	for _, part := range strings.Split(message[idx+len("failed: "):], ",") {
		part = strings.TrimSpace(part)
		if dot := strings.LastIndexByte(part, '.'); dot >= 0 {
			part = part[dot+1:]
		}
		if part != "" {
			columns = append(columns, part)
		}
	}
	return columns
}
