// File: cmd/gentoken/main.go
// gentoken generates signed player and viewer tokens for the game
// server.
//
//	gentoken player -name Alice [-id UUID] [-duration 24h]
//	gentoken viewer [-id UUID] [-duration 24h]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/luarena/server/auth"
	"github.com/luarena/server/utils"
)

func main() {
	utils.LoadEnvFiles()

	if len(os.Args) < 2 {
		usage()
	}

	var audience auth.Audience
	switch os.Args[1] {
	case "player":
		audience = auth.AudiencePlayer
	case "viewer":
		audience = auth.AudienceViewer
	default:
		usage()
	}

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	rawID := fs.String("id", "", "subject UUID (random if omitted)")
	name := fs.String("name", "", "player name or alias")
	duration := fs.Duration("duration", 365*24*time.Hour, "token lifetime")
	secret := fs.String("jwt-secret", os.Getenv("JWT_SECRET"), "JSON web token secret")
	fs.Parse(os.Args[2:])

	if *secret == "" {
		fatal("a JWT secret is required (flag -jwt-secret or env JWT_SECRET)")
	}
	if audience == auth.AudiencePlayer && *name == "" {
		fatal("player tokens require -name")
	}

	id := uuid.New()
	if *rawID != "" {
		parsed, err := uuid.Parse(*rawID)
		if err != nil {
			fatal("invalid UUID %q: %v", *rawID, err)
		}
		id = parsed
	} else {
		fmt.Fprintf(os.Stderr, "Generated random ID: %s\n", id)
	}

	token, err := auth.Issue(*secret, id, audience, *name, *duration)
	if err != nil {
		fatal("failed to sign token: %v", err)
	}
	fmt.Println(token)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gentoken (player|viewer) [flags]")
	os.Exit(2)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
