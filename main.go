package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/EricBellDesigns/blackplum-wealth-platform/pkg/blob"
	"github.com/EricBellDesigns/blackplum-wealth-platform/pkg/mailer"
	"github.com/EricBellDesigns/blackplum-wealth-platform/pkg/offering"
)

var (
	jwtSecret   []byte // loaded from env JWT_SECRET (fallback to dev default)
	resetSecret []byte // env SECRET_KEY, used for password-reset MACs

	blobs         blob.Store
	offeringStore *offering.Store
	mail          mailer.Mailer
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)
	if v := os.Getenv("SECRET_KEY"); v != "" {
		resetSecret = []byte(v)
	} else {
		resetSecret = jwtSecret
	}

	// Support a lightweight migrate command: `./blackplum_app migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()
	initServices()

	r := gin.Default()

	// locally stored attachments (pictures/documents) are served from here;
	// attachment rows reference paths under this prefix
	r.Static("/public", uploadBaseDir())

	setupRoutes(r)

	r.Run(":8080")
}

// initServices wires the blob store, the offering persistence core and the
// mailer. Everything is constructed explicitly so tests can swap in fakes.
func initServices() {
	local, err := blob.NewLocalStore(uploadBaseDir())
	if err != nil {
		log.Fatal("failed to initialize blob store:", err)
	}
	blobs = local
	offeringStore = offering.NewStore(db, blobs)

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	sender := os.Getenv("SENDER_EMAIL")
	if sender == "" {
		mail = &mailer.LogMailer{BaseURL: baseURL}
		return
	}
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	mail = &mailer.SMTPMailer{
		Addr:     host + ":" + port,
		Host:     host,
		Sender:   sender,
		Password: os.Getenv("SENDER_PASSWORD"),
		BaseURL:  baseURL,
	}
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
