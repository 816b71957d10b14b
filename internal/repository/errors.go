package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// MySQL server error numbers the repos react to.
const (
	errDupEntry = 1062
)

// isDuplicate reports whether err is a unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

// duplicateAsStorage wraps unique key violations as storage errors and
// returns every other error unchanged.
func duplicateAsStorage(op string, err error) error {
	if isDuplicate(err) {
		return model.StorageError(op, err)
	}
	return err
}
