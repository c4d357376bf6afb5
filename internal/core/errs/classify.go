package errs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Classify 把驱动/库层面的错误归类为 *Error；已经是 *Error 的原样返回
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var ve validator.ValidationErrors
	if msg, ok := duplicate(err); ok {
		return Wrap(KindConflict, msg, err)
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(KindNotFound, "No document found with that ID", err)
	case errors.As(err, &ve):
		return fromValidator(ve)
	case errors.Is(err, jwt.ErrTokenExpired):
		return Wrap(KindExpiredCredential, "Your token has expired. Please log in again.", err)
	case isJWTError(err):
		return Wrap(KindInvalidCredential, "Invalid token. Please log in again.", err)
	}
	return Wrap(KindUnexpected, "", err)
}

func isJWTError(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed, jwt.ErrTokenSignatureInvalid, jwt.ErrTokenUnverifiable,
		jwt.ErrTokenNotValidYet, jwt.ErrTokenInvalidIssuer, jwt.ErrTokenInvalidClaims,
		jwt.ErrTokenUsedBeforeIssued,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var (
	pgDetailKey = regexp.MustCompile(`Key \(([^)]+)\)=\(([^)]*)\)`)
	mysqlEntry  = regexp.MustCompile(`Duplicate entry '([^']*)'`)
)

const dupGeneric = "Duplicate field value. Please use another value!"

// duplicate 唯一约束冲突：先认驱动的错误类型（pg 23505 / mysql 1062），再按消息兜底
func duplicate(err error) (string, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == "23505" {
		return pgDuplicate(pe.Detail), true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return mysqlDuplicate(me.Message), true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return dupGeneric, true
	}
	msg := err.Error()
	low := strings.ToLower(msg)
	switch {
	case strings.Contains(low, "duplicate key"), strings.Contains(low, "unique constraint"):
		return pgDuplicate(msg), true
	case strings.Contains(low, "duplicate entry"):
		return mysqlDuplicate(msg), true
	}
	return "", false
}

func pgDuplicate(detail string) string {
	if m := pgDetailKey.FindStringSubmatch(detail); len(m) == 3 {
		return fmt.Sprintf("Duplicate field value: %q for %s. Please use another value!", m[2], m[1])
	}
	return dupGeneric
}

func mysqlDuplicate(msg string) string {
	if m := mysqlEntry.FindStringSubmatch(msg); len(m) == 2 {
		return fmt.Sprintf("Duplicate field value: %q. Please use another value!", m[1])
	}
	return dupGeneric
}

func fromValidator(ve validator.ValidationErrors) *Error {
	fields := make(map[string]string, len(ve))
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		m := fieldMessage(fe)
		fields[lowerFirst(fe.Field())] = m
		msgs = append(msgs, m)
	}
	return &Error{
		Kind:   KindValidation,
		Msg:    "Invalid input data. " + strings.Join(msgs, ". "),
		Fields: fields,
		Err:    ve,
	}
}

func fieldMessage(fe validator.FieldError) string {
	name := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s is either: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return "Passwords are not the same"
	case "ltfield":
		return fmt.Sprintf("%s (%v) should be below %s", name, fe.Value(), lowerFirst(fe.Param()))
	}
	return fmt.Sprintf("%s is invalid", name)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
