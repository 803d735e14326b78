package mgo

import (
	"PPLink/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// TranslateError maps driver errors to client-facing codes. Register it with specialerror.AddErrHandler.
func TranslateError(err error) (errs.CodeError, bool) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return errs.ErrRecordNotFound, true
	case mongo.IsDuplicateKeyError(err):
		return errs.ErrRecordIsExist, true
	case mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return errs.ErrUnavailable, true
	}
	return errs.CodeError{}, false
}
