/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	minPlayers = 5
	maxPlayers = 10
)

type Config struct {
	autoplayDelay  time.Duration
	backendURL     string
	bind           string
	cacheTTL       time.Duration
	fetchTimeout   time.Duration
	players        int
	port           int
	prefix         string
	profile        bool
	redisAddr      string
	redisDB        int
	redisPassword  string
	retryDelay     time.Duration
	round          int
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	transcriptDir  string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.players < minPlayers || c.players > maxPlayers {
		return fmt.Errorf("invalid player count (must be between %d-%d inclusive): %d", minPlayers, maxPlayers, c.players)
	}
	if c.round < 1 {
		return fmt.Errorf("invalid round (must be at least 1): %d", c.round)
	}
	if c.autoplayDelay <= 0 {
		return fmt.Errorf("invalid autoplay delay (must be positive): %s", c.autoplayDelay)
	}
	if c.retryDelay <= 0 {
		return fmt.Errorf("invalid retry delay (must be positive): %s", c.retryDelay)
	}
	if c.transcriptDir == "" {
		u, err := url.Parse(c.backendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid backend url: %q", c.backendURL)
		}
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
	v.SetEnvPrefix("WEREWOLF_REPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "werewolf-replay",
		Short:         "Step through recorded werewolf games in the browser.",
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

	fs.DurationVar(&cfg.autoplayDelay, "autoplay-delay", 2*time.Second, "time between lines during autoplay (env: WEREWOLF_REPLAY_AUTOPLAY_DELAY)")
	fs.StringVar(&cfg.backendURL, "backend-url", "http://localhost:9000", "base url of the game-generation backend (env: WEREWOLF_REPLAY_BACKEND_URL)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WEREWOLF_REPLAY_BIND)")
	fs.DurationVar(&cfg.cacheTTL, "cache-ttl", 24*time.Hour, "how long transcripts stay in redis, 0 to keep forever (env: WEREWOLF_REPLAY_CACHE_TTL)")
	fs.DurationVar(&cfg.fetchTimeout, "fetch-timeout", 30*time.Second, "timeout for each backend request (env: WEREWOLF_REPLAY_FETCH_TIMEOUT)")
	fs.IntVar(&cfg.players, "players", 8, "default number of players when initializing a game (env: WEREWOLF_REPLAY_PLAYERS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WEREWOLF_REPLAY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WEREWOLF_REPLAY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WEREWOLF_REPLAY_PROFILE)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for caching transcripts, empty to disable (env: WEREWOLF_REPLAY_REDIS_ADDR)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database number (env: WEREWOLF_REPLAY_REDIS_DB)")
	fs.StringVar(&cfg.redisPassword, "redis-password", "", "redis password (env: WEREWOLF_REPLAY_REDIS_PASSWORD)")
	fs.DurationVar(&cfg.retryDelay, "retry-delay", 2*time.Second, "wait after initializing a missing game before fetching it again (env: WEREWOLF_REPLAY_RETRY_DELAY)")
	fs.IntVar(&cfg.round, "round", 1, "round loaded when a room opens (env: WEREWOLF_REPLAY_ROUND)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are closed (env: WEREWOLF_REPLAY_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WEREWOLF_REPLAY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WEREWOLF_REPLAY_TLS_KEY)")
	fs.StringVar(&cfg.transcriptDir, "transcript-dir", "", "read round-<n>.json/.yaml transcripts from this directory instead of the backend (env: WEREWOLF_REPLAY_TRANSCRIPT_DIR)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WEREWOLF_REPLAY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: WEREWOLF_REPLAY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("werewolf-replay v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
