// Command admin bootstraps operator accounts and licenses from the CLI.
//
//	admin -operator <name>                      create an operator, print a one-time password
//	admin -license <name> -apis web,stats       create a license granting capabilities
package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"mainsite/internal/auth"
	"mainsite/internal/config"
	"mainsite/internal/database"
)

func main() {
	var (
		operatorName = flag.String("operator", "", "operator username to create")
		licenseName  = flag.String("license", "", "license name to create")
		apiNames     = flag.String("apis", "", "comma-separated capability names the license grants")
	)
	flag.Parse()

	if *operatorName == "" && *licenseName == "" {
		log.Fatal("nothing to do: pass -operator and/or -license")
	}

	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}
	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	if *operatorName != "" {
		if err := createOperator(db, strings.TrimSpace(*operatorName)); err != nil {
			log.Fatalf("create operator: %v", err)
		}
	}
	if *licenseName != "" {
		if err := createLicense(db, strings.TrimSpace(*licenseName), splitNames(*apiNames)); err != nil {
			log.Fatalf("create license: %v", err)
		}
	}
}

func createOperator(db *gorm.DB, username string) error {
	var existing database.Operator
	switch err := db.Where("username = ?", username).First(&existing).Error; {
	case err == nil:
		return fmt.Errorf("operator %q already exists", username)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query operator: %w", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	operator := database.Operator{Username: username, PasswordHash: hashed}
	if err := db.Create(&operator).Error; err != nil {
		return fmt.Errorf("insert operator: %w", err)
	}

	fmt.Printf("operator created\n")
	fmt.Printf("username: %s\n", username)
	fmt.Printf("password: %s\n", password)
	fmt.Printf("note: this password is shown only once\n")
	return nil
}

func createLicense(db *gorm.DB, name string, apiNames []string) error {
	apis := make([]database.Api, 0, len(apiNames))
	for _, apiName := range apiNames {
		var api database.Api
		if err := db.Where(database.Api{Name: apiName}).FirstOrCreate(&api).Error; err != nil {
			return fmt.Errorf("resolve api %q: %w", apiName, err)
		}
		apis = append(apis, api)
	}

	license := database.License{Name: name, Active: true, Apis: apis}
	if err := db.Create(&license).Error; err != nil {
		return fmt.Errorf("insert license: %w", err)
	}

	fmt.Printf("license created\n")
	fmt.Printf("name: %s\n", name)
	fmt.Printf("key:  %s\n", license.Key)
	if len(apiNames) > 0 {
		fmt.Printf("apis: %s\n", strings.Join(apiNames, ", "))
	}
	return nil
}

func splitNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// loadDatabaseConfig reads only the database settings so the CLI runs
// without the full API environment.
func loadDatabaseConfig() (config.DatabaseConfig, error) {
	cfg := config.DatabaseConfig{
		Host:     envOr("DATABASE_HOST", "localhost"),
		Name:     os.Getenv("POSTGRES_DB"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		SSLMode:  envOr("DATABASE_SSLMODE", "disable"),
		Port:     5432,
	}
	if raw := strings.TrimSpace(os.Getenv("DATABASE_PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
		}
		cfg.Port = port
	}
	if cfg.Name == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if cfg.User == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if cfg.Password == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func generateRandomPassword(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
