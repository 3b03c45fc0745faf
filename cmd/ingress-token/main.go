package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"whitelist-bot/internal/security"
)

func main() {
	scope := flag.String("scope", string(security.ScopeGateway), "Token scope: gateway or admin")
	tenant := flag.String("tenant", "", "Tenant id the token is limited to (empty for every tenant)")
	actor := flag.String("actor", "", "Actor id recorded as the token subject")
	roles := flag.String("roles", "", "Comma-separated role ids held by the actor")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	secret := os.Getenv("INGRESS_SECRET")
	if len(secret) < 32 {
		log.Fatal("INGRESS_SECRET must be set to at least 32 characters")
	}
	if *actor == "" {
		log.Fatal("-actor is required")
	}

	var roleIDs []string
	if *roles != "" {
		for _, r := range strings.Split(*roles, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roleIDs = append(roleIDs, r)
			}
		}
	}

	token, err := security.NewTokenManager(secret).GenerateToken(security.Scope(*scope), *tenant, *actor, roleIDs, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
