package ratelimit

import (
	"fmt"
	"strings"
)

// LoginKey builds a limiter key for a login attempt. Attempts are bucketed
// per email and client address, so one caller hammering one account cannot
// exhaust the budget of either dimension alone.
func LoginKey(email, clientIP string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	clientIP = strings.TrimSpace(clientIP)
	if email == "" && clientIP == "" {
		return ""
	}
	return fmt.Sprintf("login:%s:%s", email, clientIP)
}
