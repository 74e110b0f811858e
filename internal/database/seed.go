package database

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedAccount describes a dashboard login created by SeedUsers
type SeedAccount struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// DefaultAccounts gives one login per role. Operator and supervisor emails
// match the seeded operators collection.
var DefaultAccounts = []SeedAccount{
	{Email: "john.smith@company.com", Password: "operator123", Name: "John Smith", Role: "operator"},
	{Email: "lisa.chen@company.com", Password: "supervisor123", Name: "Lisa Chen", Role: "supervisor"},
	{Email: "admin@siteops.local", Password: "admin123", Name: "Site Admin", Role: "admin"},
}

func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding dashboard users...")
	for _, account := range DefaultAccounts {
		created, err := CreateUser(db, account)
		if err != nil {
			return err
		}
		if created {
			log.Printf("  ✓ Created user: %s (%s)", account.Email, account.Role)
		}
	}

	log.Println("✓ Successfully seeded dashboard users")
	return nil
}

// CreateUser inserts an account unless one with the same email exists.
// Reports whether a row was written.
func CreateUser(db *sqlx.DB, account SeedAccount) (bool, error) {
	var exists bool
	err := db.Get(&exists, db.Rebind("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)"), account.Email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	now := time.Now().Unix()
	_, err = db.NamedExec(`
		INSERT INTO users (id, email, password, name, role, created_at, updated_at)
		VALUES (:id, :email, :password, :name, :role, :created_at, :updated_at)
	`, map[string]interface{}{
		"id":         uuid.New().String(),
		"email":      account.Email,
		"password":   string(hash),
		"name":       account.Name,
		"role":       account.Role,
		"created_at": now,
		"updated_at": now,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
