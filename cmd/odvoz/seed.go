package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/odvoz/internal/model"
	"github.com/erazemk/odvoz/internal/store"
)

// seedAdmin creates the admin account for email when no account uses that
// address yet. It returns the generated password, or "" when the account
// already existed.
func seedAdmin(ctx context.Context, database *sql.DB, email string) (string, error) {
	existing, err := store.GetUserByEmail(ctx, database, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	admin, err := store.CreateUser(ctx, tx, "Administrator", email, "", string(hash), model.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	if _, err := store.SetUserApproved(ctx, tx, admin.ID, true); err != nil {
		return "", fmt.Errorf("approving admin user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing admin user: %w", err)
	}
	return password, nil
}

// printSeedResult prints the seeded admin credentials to stdout.
func printSeedResult(email, password string) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
