package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/golf-arbitri/referee-system/policies"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	PublicURL    string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	// Почтовые ящики для маршрутизации уведомлений о доступности.
	NationalMailbox string
	FallbackMailbox string
	ZoneMailboxes   map[int]string
}

// MailboxDirectory собирает справочник адресов для policies.RecipientsFor.
func (c *Config) MailboxDirectory() policies.MailboxDirectory {
	return policies.MailboxDirectory{
		ZoneMailboxes:   c.ZoneMailboxes,
		FallbackMailbox: c.FallbackMailbox,
		NationalMailbox: c.NationalMailbox,
	}
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	smtpPort := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		smtpPort, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT environment variable: %w", err)
		}
	}

	zoneMailboxes, err := parseZoneMailboxes(os.Getenv("ZONE_MAILBOXES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,
		PublicURL:    getEnvOrDefault("PUBLIC_URL", fmt.Sprintf("http://localhost:%d", port)),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: smtpPort,
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: getEnvOrDefault("SMTP_FROM", "noreply@federgolf.it"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		NationalMailbox: getEnvOrDefault("NATIONAL_MAILBOX", "crc@federgolf.it"),
		FallbackMailbox: getEnvOrDefault("FALLBACK_MAILBOX", "arbitri@federgolf.it"),
		ZoneMailboxes:   zoneMailboxes,
	}

	return cfg, nil
}

// parseZoneMailboxes разбирает строку вида "1=szr1@federgolf.it,2=szr2@federgolf.it".
func parseZoneMailboxes(raw string) (map[int]string, error) {
	mailboxes := make(map[int]string)
	if raw == "" {
		return mailboxes, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid ZONE_MAILBOXES entry: %q", pair)
		}
		zoneID, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid zone id in ZONE_MAILBOXES entry %q: %w", pair, err)
		}
		mailboxes[zoneID] = strings.TrimSpace(parts[1])
	}
	return mailboxes, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
