// Package main provides a CLI tool for generating test tokens for the
// docseal API. These tokens use the dev signing key and will NOT work
// against a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"docseal/internal/jwtauth"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "docseal"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Role      string            `json:"role"`
	Subject   string            `json:"subject"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	authorityCmd := flag.NewFlagSet("authority", flag.ExitOnError)
	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)

	authoritySubject := authorityCmd.String("subject", "", "Authority ID. Generated if empty.")
	authorityTTL := authorityCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	authorityKey := authorityCmd.String("signing-key", devSigningKey, "HMAC signing key")
	authorityJSON := authorityCmd.Bool("json", false, "Output as JSON")

	adminSubject := adminCmd.String("subject", "", "Admin ID. Generated if empty.")
	adminTTL := adminCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	adminKey := adminCmd.String("signing-key", devSigningKey, "HMAC signing key")
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "authority":
		_ = authorityCmd.Parse(os.Args[2:])
		generate(jwtauth.RoleAuthority, *authoritySubject, *authorityKey, *authorityTTL, *authorityJSON)
	case "admin":
		_ = adminCmd.Parse(os.Args[2:])
		generate(jwtauth.RoleAdmin, *adminSubject, *adminKey, *adminTTL, *adminJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func generate(role, subject, signingKey string, ttl time.Duration, asJSON bool) {
	if subject == "" {
		subject = uuid.New().String()
	}

	svc := jwtauth.NewService(signingKey, defaultIssuer, ttl)
	token, err := svc.GenerateToken(subject, role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	if asJSON {
		out := tokenOutput{
			Token:     token,
			Role:      role,
			Subject:   subject,
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header": "Authorization: Bearer " + token,
			},
		}
		encoded, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(encoded))
		return
	}

	fmt.Printf("Role:    %s\n", role)
	fmt.Printf("Subject: %s\n", subject)
	fmt.Printf("Expires: %s\n\n", ttl)
	fmt.Printf("%s\n\n", token)
	fmt.Printf("Usage:\n  curl -H \"Authorization: Bearer %s\" ...\n", token)
}

func printUsage() {
	fmt.Println(`tokengen - Generate test tokens for the docseal API

WARNING: These tokens use the dev signing key and will NOT work in
         production. Only use for local development and testing.

Usage:
  tokengen <command> [flags]

Commands:
  authority   Generate an authority token (can store and update hashes)
  admin       Generate an admin token

Examples:
  # Authority token with defaults
  tokengen authority

  # Authority token for a named issuer with a custom TTL
  tokengen authority -subject "exam-board" -ttl 1h

  # Against a server with a non-default signing key
  tokengen authority -signing-key "$JWT_SIGNING_KEY"

  # JSON output
  tokengen admin -json`)
}
