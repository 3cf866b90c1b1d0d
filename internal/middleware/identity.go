// Package middleware provides HTTP middleware for the gachapon API.
package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const accountKey contextKey = "account"

// AccountHeader carries the caller's ledger account. Deployments terminate
// real authentication at the gateway and forward the verified account here.
const AccountHeader = "X-Account"

// Identity copies the caller account from the request header into the
// context so handlers and later middleware can read it.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if account := r.Header.Get(AccountHeader); account != "" {
			r = r.WithContext(context.WithValue(r.Context(), accountKey, account))
		}
		next.ServeHTTP(w, r)
	})
}

// GetAccount returns the caller account from the context, or "".
func GetAccount(ctx context.Context) string {
	account, _ := ctx.Value(accountKey).(string)
	return account
}
