package cli

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
	"sparklab/internal/client"
	"sparklab/internal/config"
)

var readPasswordFunc = term.ReadPassword // mockable

type clientDeps struct {
	cfg     config.Config
	api     *client.Client
	session *client.Session
}

func loadClient(configPath string) (clientDeps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return clientDeps{}, err
	}
	sess, err := client.OpenSession(cfg.Client.SessionPath)
	if err != nil {
		return clientDeps{}, err
	}
	base := cfg.Client.BaseURL
	if base == "" {
		base = "http://localhost:8080"
	}
	api := client.New(base, config.TTLDuration(cfg.Client.Timeout, 10*time.Second), client.WithToken(sess.Token))
	return clientDeps{cfg: cfg, api: api, session: sess}, nil
}

// userID resolves --user, then the signed-in user.
func (d clientDeps) userID(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	id, err := d.session.UserID()
	if err != nil {
		return "", fmt.Errorf("%w: run 'sparklab login' or pass --user", err)
	}
	return id, nil
}

func promptPassword(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("SPARKLAB_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", fmt.Errorf("password is required")
	}
	return string(pwd), nil
}
