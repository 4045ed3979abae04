package main

import (
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/EricBellDesigns/blackplum-wealth-platform/models"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others.
		// Admins first so offerings can apply their FK safely.
		if err := db.AutoMigrate(&models.Admin{}); err != nil {
			log.Printf("migration warning (admins): %v", err)
		}
		if err := db.AutoMigrate(&models.Investor{}); err != nil {
			log.Printf("migration warning (investors): %v", err)
		}
		if err := db.AutoMigrate(&models.Offering{}); err != nil {
			log.Printf("migration warning (offerings): %v", err)
		}
		if err := db.AutoMigrate(&models.OfferingPicture{}); err != nil {
			log.Printf("migration warning (offering_pictures): %v", err)
		}
		if err := db.AutoMigrate(&models.OfferingDocument{}); err != nil {
			log.Printf("migration warning (offering_documents): %v", err)
		}
		if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
			log.Printf("migration warning (refresh_tokens): %v", err)
		}

		// Attachment tables must cascade when their offering goes away
		// (in case the tables predate the constraint tags)
		if err := ensureAttachmentFKs(); err != nil {
			log.Printf("warning: ensuring attachment cascade FKs failed: %v", err)
		}
	}
	seedDB()
}

// ensureAttachmentFKs adds ON DELETE CASCADE foreign keys from the attachment
// tables to offerings if they are missing.
func ensureAttachmentFKs() error {
	for _, table := range []string{"offering_pictures", "offering_documents"} {
		// 1. Index on offering_id (idempotent)
		if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_` + table + `_offering_id ON ` + table + `(offering_id)`).Error; err != nil {
			return err
		}
		// 2. Check if a cascading FK to offerings is already present
		type cnt struct{ N int }
		var c cnt
		fkCheckSQL := `SELECT count(*) AS n
			FROM pg_constraint ct
			JOIN pg_class rel ON rel.oid = ct.conrelid
			WHERE rel.relname = ? AND ct.contype = 'f'
			  AND pg_get_constraintdef(ct.oid) ILIKE '%offering_id%' AND pg_get_constraintdef(ct.oid) ILIKE '%offerings%'`
		if err := db.Raw(fkCheckSQL, table).Scan(&c).Error; err != nil {
			return err
		}
		if c.N == 0 {
			if err := db.Exec(`ALTER TABLE ` + table + `
				ADD CONSTRAINT fk_` + table + `_offerings
				FOREIGN KEY (offering_id) REFERENCES offerings(id)
				ON UPDATE CASCADE ON DELETE CASCADE`).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func seedDB() {
	// Seed the initial admin account from env (ADMIN_USERNAME, ADMIN_EMAIL,
	// ADMIN_PASSWORD); skipped when any admin already exists.
	var count int64
	db.Model(&models.Admin{}).Count(&count)
	if count == 0 {
		name := os.Getenv("ADMIN_USERNAME")
		email := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
		password := os.Getenv("ADMIN_PASSWORD")
		if email == "" || password == "" {
			log.Println("no admins exist and ADMIN_EMAIL/ADMIN_PASSWORD are unset; skipping admin seed")
		} else {
			if name == "" {
				name = "Administrator"
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				log.Printf("failed to hash seed admin password: %v", err)
				return
			}
			admin := models.Admin{Name: name, Email: email, Password: string(hashed)}
			if err := db.Create(&admin).Error; err != nil {
				log.Printf("failed to seed admin: %v", err)
			} else {
				log.Println("Seeded admin account:", email)
			}
		}
	}
	// Ensure upload directory exists
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for local uploads (configurable via UPLOAD_BASE env)
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}
