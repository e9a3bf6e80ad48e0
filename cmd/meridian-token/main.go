// Command meridian-token mints a bearer token for a user, for local
// development and operational break-glass access.
//
//	meridian-token -user 1 -perms reports.view_sales,reports.view_profit
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/meridian-retail/meridian/internal/app"
	"github.com/meridian-retail/meridian/internal/identity"
	"github.com/meridian-retail/meridian/internal/platform/cache"
	"github.com/meridian-retail/meridian/internal/shared"
)

func main() {
	userID := flag.Int64("user", 0, "user id the token authenticates")
	perms := flag.String("perms", "", "comma separated permissions")
	roles := flag.String("roles", "", "comma separated roles")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to TOKEN_TTL")
	flag.Parse()

	if *userID <= 0 {
		log.Fatal("a positive -user id is required")
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer client.Close()

	lifetime := cfg.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}
	store := identity.NewStore(client, lifetime)
	token, err := store.Issue(ctx, &shared.Caller{
		ID:          *userID,
		Roles:       splitList(*roles),
		Permissions: splitList(*perms),
	})
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
