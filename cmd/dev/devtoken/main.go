package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"petcare/pkg/config"
	"petcare/pkg/session"
)

func main() {
	cfg := config.Load()

	var (
		facilitySlug = flag.String("facility", "happy-paws", "facility slug the token is scoped to")
		staff        = flag.String("staff", "dev", "staff member name (recorded as actor)")
		role         = flag.String("role", string(session.RoleStaff), "staff or manager")
		ttl          = flag.Duration("ttl", cfg.Session.TTL, "token lifetime")
		secret       = flag.String("secret", "", "SESSION_SECRET used by the server")
	)
	flag.Parse()

	// Prefer explicit flag, otherwise take from config/env (.env is loaded by config.Load()).
	if *secret == "" {
		*secret = cfg.Session.Secret
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing -secret (or SESSION_SECRET in env/.env)")
		os.Exit(2)
	}
	r := session.Role(*role)
	if r != session.RoleStaff && r != session.RoleManager {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	iss := session.Issuer{
		Secret:   *secret,
		Issuer:   cfg.Session.Issuer,
		Audience: cfg.Session.Audience,
		TTL:      *ttl,
	}
	tok, err := iss.Issue(session.Staff{Facility: *facilitySlug, Name: *staff, Role: r}, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
