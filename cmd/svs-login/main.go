// svs-login stores credentials for a profile in the encrypted
// credential store, verifying them against the station first.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/config"
	"github.com/technosupport/svs-client/internal/credentials"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "config file path")
	profileName := flag.String("profile", "", "profile name (default: config default_profile)")
	username := flag.String("user", "", "account name (required)")
	noVerify := flag.Bool("no-verify", false, "store without logging in first")
	flag.Parse()

	if *username == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	name := *profileName
	if name == "" {
		name = cfg.DefaultProfile
	}
	profile, ok := cfg.Profiles[name]
	if !ok {
		log.Fatalf("profile %q not found in %s", name, *cfgPath)
	}

	password := os.Getenv("SVS_PASSWORD")
	if password == "" {
		fmt.Fprintf(os.Stderr, "password for %s@%s: ", *username, profile.Host)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			log.Fatalf("read password: %v", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		log.Fatal("empty password")
	}

	creds := credentials.Credentials{Username: *username, Password: password}

	if !*noVerify {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sess := api.New(profile)
		if err := sess.Connect(ctx, creds); err != nil {
			log.Fatalf("login check against %s failed: %v", profile.BaseURL(), err)
		}
		sess.Logout(ctx)
	}

	store, err := credentials.NewFileStore(filepath.Join(filepath.Dir(*cfgPath), "credentials.json"))
	if err != nil {
		log.Fatalf("credential store: %v", err)
	}
	if err := store.Set(name, creds); err != nil {
		log.Fatalf("store credentials: %v", err)
	}
	fmt.Printf("stored credentials for profile %q\n", name)
}
