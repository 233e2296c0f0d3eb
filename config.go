package main

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/guessmaster/answering"
	"github.com/Seednode/guessmaster/session"
)

type Config struct {
	allowedOrigins []string
	answerURL      string
	bind           string
	debugFrames    bool
	model          string
	noAnswering    bool
	openAIBaseURL  string
	openAIKey      string
	port           int
	prefix         string
	profile        bool
	promptFile     string
	questionLimit  int
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	server string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.questionLimit < 1 {
		return fmt.Errorf("invalid question limit (must be at least 1): %d", c.questionLimit)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must not be negative): %s", c.sessionTimeout)
	}
	if c.noAnswering && c.answerURL == "" {
		return errors.New("--answer-url is required when --no-answering is set")
	}
	if c.answerURL != "" {
		if err := checkURL(c.answerURL); err != nil {
			return errors.Wrap(err, "--answer-url")
		}
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) url: %q", raw)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// answeringURL is where game sessions send their transcripts. Without an
// explicit --answer-url it is this server's own answering endpoint.
func (c *Config) answeringURL() string {
	if c.answerURL != "" {
		return c.answerURL
	}

	host := c.bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return c.scheme() + "://" + net.JoinHostPort(host, strconv.Itoa(c.port)) + c.prefix
}

// bindEnv applies GUESSMASTER_* environment variables to any flag not set on
// the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(strings.Split(v.GetString(f.Name), ","))
				return
			}
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func normalize(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GUESSMASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "guessmaster",
		Short:         "Play 20 Questions against a language model, in the browser or the terminal.",
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

	pfs := cmd.PersistentFlags()
	pfs.SetNormalizeFunc(normalize)
	pfs.IntVar(&cfg.questionLimit, "question-limit", session.DefaultLimit, "questions the model may ask before the game ends (env: GUESSMASTER_QUESTION_LIMIT)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: GUESSMASTER_VERBOSE)")

	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalize)

	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origin", []string{}, "origin allowed to call the answering service cross-site, repeatable (env: GUESSMASTER_ALLOWED_ORIGIN)")
	fs.StringVar(&cfg.answerURL, "answer-url", "", "base url of the answering service used by games; defaults to this server (env: GUESSMASTER_ANSWER_URL)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GUESSMASTER_BIND)")
	fs.BoolVar(&cfg.debugFrames, "debug-frames", false, "append a diagnostic frame with the full prompt to each answer (env: GUESSMASTER_DEBUG_FRAMES)")
	fs.StringVar(&cfg.model, "model", answering.DefaultModel, "chat model to ask for questions (env: GUESSMASTER_MODEL)")
	fs.BoolVar(&cfg.noAnswering, "no-answering", false, "do not serve the answering service, use --answer-url instead (env: GUESSMASTER_NO_ANSWERING)")
	fs.StringVar(&cfg.openAIBaseURL, "openai-base-url", answering.DefaultBaseURL, "base url of an OpenAI-compatible chat api (env: GUESSMASTER_OPENAI_BASE_URL)")
	fs.StringVar(&cfg.openAIKey, "openai-api-key", "", "api key for the chat api, if it needs one (env: GUESSMASTER_OPENAI_API_KEY)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GUESSMASTER_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: GUESSMASTER_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: GUESSMASTER_PROFILE)")
	fs.StringVar(&cfg.promptFile, "prompt-file", "", "yaml file overriding the built-in prompt (env: GUESSMASTER_PROMPT_FILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle games are ended, 0 to keep them forever (env: GUESSMASTER_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: GUESSMASTER_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: GUESSMASTER_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: GUESSMASTER_VERSION)")

	bindEnv(v, pfs)
	bindEnv(v, fs)

	cmd.AddCommand(newPlayCmd(cfg, v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("guessmaster v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
