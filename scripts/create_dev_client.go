package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/auth"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/config"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/database"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	xoauth2 "golang.org/x/oauth2"
)

func main() {
	// Parse command line flags
	username := flag.String("username", "developer", "Owner of the client, created if missing")
	name := flag.String("name", "Development Client", "client_name")
	redirects := flag.String("redirect-uris", models.OutOfBandRedirectURI, "Comma separated redirect URIs")
	scope := flag.String("scope", "profile", "Scope the client may request")
	method := flag.String("auth-method", models.AuthMethodClientSecretBasic, "none, client_secret_basic or client_secret_post")
	refresh := flag.Bool("refresh", true, "Allow the refresh_token grant")
	flag.Parse()

	_ = godotenv.Load()
	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.InitDatabase(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		URL:      conf.DatabaseURL,
		Path:     conf.DBPath,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	ctx := context.Background()

	// Get or create the owning user
	user, err := services.NewUserService(db).FindOrCreateUser(ctx, *username)
	if err != nil {
		log.Fatal("Failed to get user:", err)
	}

	metadata := models.ClientMetadata{
		ClientName:              *name,
		RedirectURIs:            splitCSV(*redirects),
		Scope:                   *scope,
		TokenEndpointAuthMethod: *method,
	}
	if *refresh {
		metadata.GrantTypes = []string{models.GrantTypeAuthorizationCode, models.GrantTypeRefreshToken}
	}
	metadata.Normalize()
	if err := metadata.Validate(); err != nil {
		log.Fatal("Invalid client metadata:", err)
	}

	client := &models.OAuthClient{
		ID:       uuid.New().String(),
		UserID:   user.ID,
		IssuedAt: time.Now().UTC(),
		Metadata: metadata,
	}

	var secret string
	if metadata.TokenEndpointAuthMethod != models.AuthMethodNone {
		if secret, err = auth.GenerateClientSecret(); err != nil {
			log.Fatal("Failed to generate secret:", err)
		}
		if client.Secret, err = auth.HashClientSecret(secret); err != nil {
			log.Fatal("Failed to hash secret:", err)
		}
	}

	if err := services.NewClientService(db).CreateClient(ctx, client); err != nil {
		log.Fatal("Failed to create client:", err)
	}

	fmt.Printf("✓ OAuth client created for user '%s' (ID: %d)\n", user.Username, user.ID)
	fmt.Printf("Client ID: %s\n", client.ID)
	if secret != "" {
		fmt.Printf("Client Secret: %s\n", secret)
	}

	// A ready-made PKCE pair for trying the flow by hand
	verifier := xoauth2.GenerateVerifier()
	redirectURI := metadata.RedirectURIs[0]
	query := url.Values{
		"client_id":             {client.ID},
		"response_type":         {models.ResponseTypeCode},
		"redirect_uri":          {redirectURI},
		"scope":                 {metadata.Scope},
		"code_challenge":        {xoauth2.S256ChallengeFromVerifier(verifier)},
		"code_challenge_method": {"S256"},
	}
	base := fmt.Sprintf("http://%s:%d", conf.Host, conf.Port)

	fmt.Println("\nApprove the request:")
	fmt.Printf("curl -X POST '%s/oauth/authorize?%s' \\\n", base, query.Encode())
	fmt.Printf("  -d 'confirm=yes' -d 'username=%s'\n", user.Username)
	fmt.Println("\nThen exchange the code:")
	fmt.Printf("curl -X POST %s/oauth/token \\\n", base)
	if secret != "" {
		fmt.Printf("  -u '%s:%s' \\\n", client.ID, secret)
	} else {
		fmt.Printf("  -d 'client_id=%s' \\\n", client.ID)
	}
	fmt.Printf("  -d 'grant_type=authorization_code' \\\n")
	fmt.Printf("  -d 'redirect_uri=%s' \\\n", redirectURI)
	fmt.Printf("  -d 'code_verifier=%s' \\\n", verifier)
	fmt.Printf("  -d 'code=<CODE>'\n")
}

func splitCSV(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
