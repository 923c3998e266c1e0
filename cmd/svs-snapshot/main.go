// svs-snapshot grabs a single still frame from a camera and writes it
// to disk. Intended for cron jobs and quick checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/config"
	"github.com/technosupport/svs-client/internal/credentials"
	"github.com/technosupport/svs-client/internal/services"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "config file path")
	profileName := flag.String("profile", "", "profile name (default: config default_profile)")
	cameraID := flag.Int("camera", 0, "camera id (required)")
	output := flag.String("out", "", "output file (default: <snapshot_dir>/cam<id>-<ts>.jpg)")
	flag.Parse()

	if *cameraID == 0 {
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

	credStore, err := credentials.NewFileStore(filepath.Join(filepath.Dir(*cfgPath), "credentials.json"))
	if err != nil {
		log.Fatalf("credential store: %v", err)
	}
	creds, err := credStore.Get(name)
	if err != nil {
		log.Fatalf("credentials for %q: %v", name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sess := api.New(profile)
	if err := sess.Connect(ctx, creds); err != nil {
		log.Fatalf("connect to %s: %v", profile.BaseURL(), err)
	}
	defer sess.Logout(ctx)

	data, err := services.TakeSnapshot(ctx, sess, *cameraID)
	if err != nil {
		log.Fatalf("snapshot camera %d: %v", *cameraID, err)
	}

	path := *output
	if path == "" {
		dir := cfg.SnapshotDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, fmt.Sprintf("cam%d-%s.jpg", *cameraID, time.Now().Format("20060102-150405")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatalf("output dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("write snapshot: %v", err)
	}
	fmt.Println(path)
}
