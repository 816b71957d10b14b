// Command admintoken prints a signed admin JWT for the booking API.
//
//	JWT_SECRET=... admintoken -sub ops -ttl 2h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/iliyamo/lodge-booking/internal/config"
	"github.com/iliyamo/lodge-booking/internal/utils"
)

func main() {
	sub := flag.String("sub", "admin", "subject claim of the token")
	ttl := flag.Duration("ttl", 0, "token lifetime (default ADMIN_TOKEN_TTL)")
	envFile := flag.String("env", ".env", "dotenv file to load first")
	flag.Parse()

	if err := config.LoadDotenv(*envFile); err != nil {
		log.Printf("warning: %v", err)
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if *ttl <= 0 {
		*ttl = config.AdminTokenTTL()
	}

	tok, err := utils.NewAccessToken(secret, *sub, utils.RoleAdmin, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format("2006-01-02 15:04:05 MST"))
}
