package handlers

import (
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/armahpen/backend-smilepill/internal/auth"
)

// uniqueViolation is the Postgres SQLSTATE for unique-constraint conflicts.
const uniqueViolation = "23505"

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// currentUserID pulls the authenticated user id out of the session claims
// placed in the request context by the authentication middleware.
func currentUserID(c *gin.Context) (string, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		return "", false
	}
	return claims.Subject, true
}
