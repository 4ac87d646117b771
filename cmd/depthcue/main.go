// Command depthcue is the operator CLI: it previews participant plans,
// checks trial sets and graph files, renders frames, and moves recorded
// sessions between the local backup and the collection service.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/depthcue/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.3.0"
	commit    = ""
	buildDate = ""
)

const (
	defaultURL      = "http://localhost:3040"
	defaultTrialSet = "public/trials.csv"
	defaultGraphDir = "public"
)

var (
	apiClient    *client.Client
	flagURL      string
	flagToken    string
	flagFmt      string
	flagTrialSet string
	flagGraphDir string
	flagBackup   string
	flagVerbose  bool
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("depthcue version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("depthcue version %s-dev", version)
}

type configFile struct {
	// Flat format
	URL      string `yaml:"url"`
	Token    string `yaml:"token"`
	TrialSet string `yaml:"trialset"`
	GraphDir string `yaml:"graph_root"`
	Backup   string `yaml:"backup"`
	// Profile format, one per lab machine or study
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

type configProfile struct {
	URL      string `yaml:"url"`
	Token    string `yaml:"token"`
	TrialSet string `yaml:"trialset"`
	GraphDir string `yaml:"graph_root"`
}

func main() {
	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "depthcue",
		Short:   "depthcue CLI: plans, trial sets and recorded sessions",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			var opts []client.Option
			if flagToken != "" {
				opts = append(opts, client.WithOperatorToken(flagToken))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newAssignCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newFrameCmd())
	rootCmd.AddCommand(newResendCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newSimulateCmd())

	return rootCmd
}

func addGlobalFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.StringVar(&flagURL, "url", defaultURL, "Collection server URL (env: DEPTHCUE_URL)")
	pf.StringVar(&flagToken, "token", "", "Operator token (env: DEPTHCUE_TOKEN)")
	pf.StringVar(&flagFmt, "format", "json", "Output format: json|table|csv|quiet")
	pf.StringVar(&flagTrialSet, "trialset", defaultTrialSet, "Trial-set CSV (env: DEPTHCUE_TRIALSET)")
	pf.StringVar(&flagGraphDir, "graph-root", defaultGraphDir, "Directory graph files are read from (env: DEPTHCUE_GRAPH_ROOT)")
	pf.StringVar(&flagBackup, "backup", "", "Local backup database (default: ~/.depthcue/backup.db, env: DEPTHCUE_BACKUP)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log parser warnings to stderr")
}

func resolveConfig() {
	// Flag takes precedence, then env, then config file.
	envDefault(&flagURL, defaultURL, "DEPTHCUE_URL")
	envDefault(&flagToken, "", "DEPTHCUE_TOKEN")
	envDefault(&flagTrialSet, defaultTrialSet, "DEPTHCUE_TRIALSET")
	envDefault(&flagGraphDir, defaultGraphDir, "DEPTHCUE_GRAPH_ROOT")
	envDefault(&flagBackup, "", "DEPTHCUE_BACKUP")

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	if flagBackup == "" {
		flagBackup = filepath.Join(home, ".depthcue", "backup.db")
	}

	data, err := os.ReadFile(filepath.Join(home, ".depthcue", "config.yaml"))
	if err != nil {
		return
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}

	resolved := configProfile{URL: cfg.URL, Token: cfg.Token, TrialSet: cfg.TrialSet, GraphDir: cfg.GraphDir}
	if cfg.Profiles != nil {
		profileName := cfg.ActiveProfile
		if profileName == "" {
			profileName = "default"
		}
		if p, ok := cfg.Profiles[profileName]; ok {
			resolved = mergeProfile(resolved, p)
		}
	}

	fileDefault(&flagURL, defaultURL, resolved.URL)
	fileDefault(&flagToken, "", resolved.Token)
	fileDefault(&flagTrialSet, defaultTrialSet, resolved.TrialSet)
	fileDefault(&flagGraphDir, defaultGraphDir, resolved.GraphDir)
	if cfg.Backup != "" && flagBackup == filepath.Join(home, ".depthcue", "backup.db") {
		flagBackup = cfg.Backup
	}
}

func envDefault(flag *string, def, key string) {
	if *flag != def {
		return
	}
	if v := os.Getenv(key); v != "" {
		*flag = v
	}
}

func fileDefault(flag *string, def, val string) {
	if *flag == def && val != "" {
		*flag = val
	}
}

func mergeProfile(base, p configProfile) configProfile {
	if p.URL != "" {
		base.URL = p.URL
	}
	if p.Token != "" {
		base.Token = p.Token
	}
	if p.TrialSet != "" {
		base.TrialSet = p.TrialSet
	}
	if p.GraphDir != "" {
		base.GraphDir = p.GraphDir
	}
	return base
}

// newLogger returns the logger handed to the parsers. Row warnings are
// only shown with --verbose.
func newLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.ErrorLevel)
	if flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
