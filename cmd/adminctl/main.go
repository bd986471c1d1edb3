// Command adminctl performs maintenance tasks against the admin database:
//
//	adminctl migrate
//	adminctl set-password <phone>
//
// set-password takes the new password from ADMIN_PASSWORD, or from the first
// line of stdin when that is unset.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/timingle-admin/internal/config"
	"github.com/iliyamo/timingle-admin/internal/database"
	"github.com/iliyamo/timingle-admin/internal/repository"
	"github.com/iliyamo/timingle-admin/internal/utils"
)

const usage = `usage:
  adminctl migrate
  ADMIN_PASSWORD=... adminctl set-password <phone>
  adminctl set-password <phone> < password.txt`

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	logger := log.New("adminctl")
	logger.SetHeader("${level} ${prefix}")

	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return 2
	}
	switch {
	case args[0] == "migrate" && len(args) == 1:
	case args[0] == "set-password" && len(args) == 2:
	default:
		flag.Usage()
		return 2
	}

	cfg := config.Load()
	if cfg.Store != config.StoreMySQL {
		logger.Errorf("adminctl needs APP_STORE=mysql, got %q", cfg.Store)
		return 1
	}
	db, err := database.Open(cfg)
	if err != nil {
		logger.Errorf("connect: %v", err)
		return 1
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch args[0] {
	case "migrate":
		if err := database.Migrate(ctx, db); err != nil {
			logger.Error(err)
			return 1
		}
		logger.Infof("applied %d statements", len(database.Statements()))
	case "set-password":
		password, err := readPassword(os.Getenv("ADMIN_PASSWORD"), os.Stdin)
		if err != nil {
			logger.Error(err)
			return 1
		}
		if err := setPassword(ctx, db, args[1], password, cfg.BcryptCost); err != nil {
			logger.Error(err)
			return 1
		}
		logger.Infof("password set for %s", args[1])
	}
	return 0
}

// readPassword prefers env; otherwise it reads one line from r.
func readPassword(env string, r io.Reader) (string, error) {
	if env != "" {
		return env, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password: set ADMIN_PASSWORD or pipe it on stdin")
	}
	return line, nil
}

// setPassword stores a bcrypt hash for an existing ADMIN or SUPER_ADMIN.
func setPassword(ctx context.Context, db *sql.DB, phone, password string, cost int) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	u, err := repository.NewUserRepo(db).GetByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("no user with phone %s", phone)
	}
	if err != nil {
		return err
	}
	if !u.Role.IsAdmin() {
		return fmt.Errorf("user %d has role %s, not an admin", u.ID, u.Role)
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	return repository.NewCredentialRepo(db).SetPasswordHash(ctx, u.ID, hash)
}
