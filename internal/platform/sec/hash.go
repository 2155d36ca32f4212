// Copyright (c) 2026 Tikra. All rights reserved.

package sec

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// The cost factor comes from configuration (PASSWORD_KDF_WORK, floor 10).
func HashPassword(plainTextPassword string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
// bcrypt performs the comparison in constant time.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// VerifyPassword is CheckPasswordHash bounded by a deadline. bcrypt has no
// cancellation hook, so the comparison runs on its own goroutine; a deadline
// that fires first reports a mismatch without waiting for the result.
func VerifyPassword(parent context.Context, timeout time.Duration, plainTextPassword, existingHash string) bool {
	verifyContext, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if verifyContext.Err() != nil {
		return false
	}

	done := make(chan bool, 1)
	go func() { done <- CheckPasswordHash(plainTextPassword, existingHash) }()

	select {
	case ok := <-done:
		return ok
	case <-verifyContext.Done():
		return false
	}
}
