package errs

import "net/http"

const (
	ServerInternalError = 500
	ArgsError           = 1001
	NoPermissionError   = 1002
	RecordNotFoundError = 1004
	RecordExistError    = 1005
	ServiceUnavailable  = 1006

	TokenExpiredError  = 1501
	TokenInvalidError  = 1502
	TokenMissingError  = 1503
	PasswordErrorCode  = 1504
	RelationshipError  = 1601
	ProtocolEventError = 1701
)

var (
	ErrInternalServer  = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs            = NewCodeError(ArgsError, "ArgsError")
	ErrNoPermission    = NewCodeError(NoPermissionError, "NoPermissionError")
	ErrRecordNotFound  = NewCodeError(RecordNotFoundError, "RecordNotFoundError")
	ErrRecordIsExist   = NewCodeError(RecordExistError, "RecordExistError")
	ErrUnavailable     = NewCodeError(ServiceUnavailable, "ServiceUnavailable")
	ErrTokenExpired    = NewCodeError(TokenExpiredError, "TokenExpiredError")
	ErrTokenInvalid    = NewCodeError(TokenInvalidError, "TokenInvalidError")
	ErrTokenMissing    = NewCodeError(TokenMissingError, "TokenMissingError")
	ErrPassword        = NewCodeError(PasswordErrorCode, "PasswordError")
	ErrRelationship    = NewCodeError(RelationshipError, "RelationshipError")
	ErrProtocolPayload = NewCodeError(ProtocolEventError, "ProtocolEventError")
)

// HTTPStatus maps a code to the status the REST layer answers with.
func HTTPStatus(code int) int {
	switch code {
	case ArgsError, ProtocolEventError, PasswordErrorCode:
		return http.StatusBadRequest
	case TokenExpiredError, TokenInvalidError, TokenMissingError:
		return http.StatusUnauthorized
	case NoPermissionError, RelationshipError:
		return http.StatusForbidden
	case RecordNotFoundError:
		return http.StatusNotFound
	case RecordExistError:
		return http.StatusConflict
	case ServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
