// Command token mints a bearer token for a staff terminal or a test client.
//
//	JWT_SECRET=... go run ./cmd/token -user 42 -role STAFF -ttl 12h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/config"
	"github.com/iliyamo/restaurant-seating/internal/middleware"
	"github.com/iliyamo/restaurant-seating/internal/utils"
)

func main() {
	userID := flag.Uint64("user", 0, "user id placed in the sub claim")
	role := flag.String("role", middleware.RoleCustomer, "CUSTOMER or STAFF")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := config.LoadDotenv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	r := strings.ToUpper(*role)
	if r != middleware.RoleCustomer && r != middleware.RoleStaff {
		log.Fatalf("unknown role %q", *role)
	}
	if *userID == 0 {
		log.Fatal("-user is required")
	}
	tok, err := utils.NewAccessToken(os.Getenv("JWT_SECRET"), *userID, r, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
