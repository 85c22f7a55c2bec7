package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind          string
	buzzWindow    time.Duration
	dataDir       string
	heartbeat     time.Duration
	idTimeout     time.Duration
	jingleDir     string
	maxBuzzers    int
	port          int
	prefix        string
	profile       bool
	sessionIdle   time.Duration
	tlsCert       string
	tlsKey        string
	verbose       bool
	version       bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxBuzzers < 1 {
		return fmt.Errorf("invalid max-buzzers (must be at least 1): %d", c.maxBuzzers)
	}
	if c.dataDir == "" {
		return errors.New("--data-dir must be provided")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUIZBUZZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "quizbuzz",
		Short:         "Real-time coordination core for a multi-player quiz buzzer platform.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUIZBUZZ_BIND)")
	fs.DurationVar(&cfg.buzzWindow, "buzz-window", 200*time.Millisecond, "simultaneity window for buzz arbitration (env: QUIZBUZZ_BUZZ_WINDOW)")
	fs.StringVar(&cfg.dataDir, "data-dir", "./data", "directory holding the results database (env: QUIZBUZZ_DATA_DIR)")
	fs.DurationVar(&cfg.heartbeat, "heartbeat-interval", 30*time.Second, "peer heartbeat period (env: QUIZBUZZ_HEARTBEAT_INTERVAL)")
	fs.DurationVar(&cfg.idTimeout, "identification-timeout", 30*time.Second, "time allowed for a new connection to identify itself (env: QUIZBUZZ_IDENTIFICATION_TIMEOUT)")
	fs.StringVar(&cfg.jingleDir, "jingle-dir", "./jingles", "directory holding jingle audio files (env: QUIZBUZZ_JINGLE_DIR)")
	fs.IntVar(&cfg.maxBuzzers, "max-buzzers", 10, "maximum number of simultaneously registered buzzers (env: QUIZBUZZ_MAX_BUZZERS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: QUIZBUZZ_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: QUIZBUZZ_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: QUIZBUZZ_PROFILE)")
	fs.DurationVar(&cfg.sessionIdle, "session-idle-timeout", 60*time.Minute, "time before a game with no recent activity is reaped (env: QUIZBUZZ_SESSION_IDLE_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: QUIZBUZZ_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: QUIZBUZZ_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: QUIZBUZZ_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: QUIZBUZZ_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("quizbuzz v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
