package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/biometric"
	"github.com/and161185/journal-keeper/internal/config"
	"github.com/and161185/journal-keeper/internal/e2e"
	"github.com/and161185/journal-keeper/internal/journal"
	"github.com/and161185/journal-keeper/internal/logging"
	"github.com/and161185/journal-keeper/internal/remote"
	"github.com/and161185/journal-keeper/internal/storage/filestore"
)

// env is what every command runs against. It is built once per invocation.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *filestore.Store
	client *remote.Client
	app    *journal.App
	token  string
	userID string
}

type rootFlags struct {
	api     string
	dir     string
	token   string
	verbose bool
}

func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		e     = &env{}
	)
	root := &cobra.Command{
		Use:   "jk",
		Short: "journal-keeper client",
		Long: `jk keeps your journal keypair on this device, publishes end-to-end
encrypted entries to the journal backend and opens entries shared with you.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return e.init(flags)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.app != nil {
				e.app.Lock()
			}
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.api, "api", "", "backend URL (default from JK_CLIENT_API_URL)")
	pf.StringVar(&flags.dir, "dir", "", "local key directory (default from JK_CLIENT_DIR)")
	pf.StringVar(&flags.token, "token", "", "bearer token (default from the saved login)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newLoginCmd(e), newLogoutCmd(e), newStatusCmd(e),
		newSignupCmd(e), newUnlockCmd(e), newRestoreCmd(e), newResetCmd(e),
		newPublishCmd(e), newOpenCmd(e), newSharedCmd(e),
		newShareCmd(e), newRevokeCmd(e), newRotateCmd(e), newUnpublishCmd(e),
		newShareLinkCmd(e), newOpenLinkCmd(e),
		newLocalCmd(e), newBiometricCmd(e), newStrengthCmd(),
	)
	return root
}

func (e *env) init(f rootFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if f.api != "" {
		cfg.Client.APIURL = f.api
	}
	if f.dir != "" {
		cfg.Client.Dir = f.dir
	}
	e.cfg = cfg

	level := "error"
	if f.verbose {
		level = "debug"
	}
	if e.log, err = logging.New(level, true); err != nil {
		return err
	}

	e.store = filestore.New(cfg.Client.Dir)
	e.token, e.userID = e.credentials(f.token)

	e.client, err = remote.New(cfg.Client.APIURL, e.token,
		remote.WithLogger(e.log.Named("remote")),
		remote.WithTimeout(cfg.Client.RequestTimeout))
	if err != nil {
		return err
	}

	mopts := []e2e.Option{e2e.WithLogger(e.log.Named("e2e"))}
	if e.token != "" {
		mopts = append(mopts, e2e.WithRemote(e.client))
	}
	keys := e2e.NewManager(e.store, mopts...)
	bio := biometric.New(nil, e.store, cfg.Client.BiometricTimeout, e.log.Named("biometric"))

	e.app = journal.New(keys, e.store,
		journal.WithBackend(e.client),
		journal.WithBiometric(bio),
		journal.WithShareBase(cfg.Client.ShareBaseURL),
		journal.WithLogger(e.log.Named("journal")))

	e.log.Debug("client ready", zap.String("api", cfg.Client.APIURL), zap.String("dir", cfg.Client.Dir), zap.Bool("token", e.token != ""))
	return nil
}

// credentials picks the bearer token (flag, then config, then saved login)
// and the user id it names.
func (e *env) credentials(flagToken string) (string, string) {
	tok := flagToken
	if tok == "" {
		tok = e.cfg.Client.Token
	}
	if tok == "" {
		saved, err := loadToken(e.cfg.Client.Dir)
		if err != nil && !errors.Is(err, errNoLogin) {
			e.log.Warn("saved login unusable", zap.Error(err))
		}
		tok = saved
	}
	userID := e.cfg.Client.UserID
	if tok != "" {
		if info, err := remote.InspectToken(tok); err == nil {
			userID = info.UserID
		}
	}
	return tok, userID
}

// needUser fails early for commands that act on behalf of a user.
func (e *env) needUser() error {
	if e.token == "" || e.userID == "" {
		return errors.New("not logged in; run: jk login --token <token>")
	}
	return nil
}
