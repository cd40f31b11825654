package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tsadaash/internal/applog"
	"tsadaash/internal/ops"
	"tsadaash/internal/store"
)

func cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (default from config)")
	janitor := fs.Duration("session-purge", time.Hour, "how often expired sessions are purged")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	if *addr == "" {
		*addr = e.cfg.Server.Addr
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           e.app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go e.app.RunSessionJanitor(ctx, *janitor)

	errc := make(chan error, 1)
	go func() {
		applog.Info(e.logger, "server_listening", map[string]any{"addr": *addr, "driver": e.db.Driver})
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	applog.Info(e.logger, "server_stopping", nil)
	return srv.Shutdown(shutdownCtx)
}

func timestamp() string {
	return time.Now().UTC().Format("20060102T150405Z")
}

func cmdBackup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	out := fs.String("out", "", "output archive path (.tar.gz)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		*out = filepath.Join("backups", "tsadaash-"+timestamp()+".tar.gz")
	}

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := ops.Backup(ctx, e.db, e.cfg.DataDir, store.SQLitePath(e.cfg.Database.DSN), *out); err != nil {
		return err
	}
	fmt.Println(*out)
	return nil
}

func cmdRestore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	archive := fs.String("archive", "", "input backup archive (.tar.gz)")
	target := fs.String("target-dir", "data-restored", "restore target directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archive == "" {
		return errors.New("archive is required")
	}
	return ops.RestoreDataDir(*archive, *target)
}

// cmdDrill backs up the data directory, restores it elsewhere and compares
// digests. Run it while the server is stopped.
func cmdDrill(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("drill", flag.ContinueOnError)
	workDir := fs.String("work-dir", os.TempDir(), "temporary workspace for drill artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*workDir, 0o755); err != nil {
		return err
	}
	ts := timestamp()
	archive := filepath.Join(*workDir, "tsadaash-drill-"+ts+".tar.gz")
	restoreDir := filepath.Join(*workDir, "tsadaash-drill-restore-"+ts)

	if err := ops.BackupDataDir(cfg.DataDir, archive); err != nil {
		return err
	}
	if err := ops.RestoreDataDir(archive, restoreDir); err != nil {
		return err
	}

	srcDigest, err := ops.DirDigest(cfg.DataDir)
	if err != nil {
		return err
	}
	restoreDigest, err := ops.DirDigest(restoreDir)
	if err != nil {
		return err
	}
	if srcDigest != restoreDigest {
		return fmt.Errorf("digest mismatch after restore: src=%s restored=%s", srcDigest, restoreDigest)
	}

	fmt.Println("backup:", archive)
	fmt.Println("restored:", restoreDir)
	fmt.Println("digest:", srcDigest)
	return nil
}
