package utils

import "github.com/google/uuid"

// GenerateInviteToken returns a fresh opaque invitation token
func GenerateInviteToken() string {
	return uuid.NewString()
}

// IsInviteToken reports whether s has the shape of a generated token
func IsInviteToken(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
