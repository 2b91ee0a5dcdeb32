// Package wizard provides an interactive setup wizard that generates the
// EthernetICMP watch-mode configuration.
package wizard

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/teivovo/EthernetICMP/internal/config"
)

// Result contains the wizard output.
type Result struct {
	Config     *config.Config
	ConfigPath string
}

// Wizard manages the interactive setup process.
type Wizard struct {
	theme *huh.Theme
}

// New creates a new setup wizard.
func New() *Wizard {
	return &Wizard{
		theme: huh.ThemeDracula(),
	}
}

// Run executes the interactive setup wizard and writes the config file.
func (w *Wizard) Run() (*Result, error) {
	w.printBanner()

	configPath, targets, err := w.askTargets()
	if err != nil {
		return nil, err
	}

	interval, retries, timeout, err := w.askPingSettings()
	if err != nil {
		return nil, err
	}

	metricsEnabled, metricsAddr, logLevel, err := w.askObservability()
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	cfg.Monitor.Targets = targets
	cfg.Monitor.Interval = interval
	cfg.Pinger.Retries = retries
	cfg.Pinger.AttemptTimeout = timeout
	cfg.Metrics.Enabled = metricsEnabled
	cfg.Metrics.Address = metricsAddr
	cfg.Log.Level = logLevel

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := w.writeConfig(cfg, configPath); err != nil {
		return nil, err
	}

	w.printSummary(configPath, cfg)

	return &Result{Config: cfg, ConfigPath: configPath}, nil
}

func (w *Wizard) printBanner() {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Render(`
  ___ _   _     ____  _
 | __| |_| |_  |  _ \(_)_ _  __ _
 | _||  _| ' \ | |_) | | ' \/ _' |
 |___|\__|_||_||____/|_|_||_\__, |
                            |___/
`)

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("  ICMP Echo Monitoring - Setup Wizard\n")

	fmt.Println(banner)
	fmt.Println(subtitle)
}

func (w *Wizard) askTargets() (configPath string, targets []string, err error) {
	configPath = "./ethping.yaml"
	targetList := ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Targets").
				Description("Choose where to write the configuration and which hosts to monitor."),

			huh.NewInput().
				Title("Config File Path").
				Placeholder("./ethping.yaml").
				Value(&configPath).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("config path is required")
					}
					if !strings.HasSuffix(s, ".yaml") && !strings.HasSuffix(s, ".yml") {
						return fmt.Errorf("config file should have .yaml or .yml extension")
					}
					return nil
				}),

			huh.NewInput().
				Title("Targets").
				Description("Comma-separated IPv4 addresses or hostnames").
				Placeholder("1.1.1.1, 8.8.8.8").
				Value(&targetList).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("at least one target is required")
					}
					for _, t := range splitTargets(s) {
						if ip := net.ParseIP(t); ip != nil && ip.To4() == nil {
							return fmt.Errorf("%s is not an IPv4 address", t)
						}
					}
					return nil
				}),
		),
	).WithTheme(w.theme)

	if err = form.Run(); err != nil {
		return "", nil, err
	}

	return configPath, splitTargets(targetList), nil
}

func (w *Wizard) askPingSettings() (interval time.Duration, retries int, timeout time.Duration, err error) {
	intervalStr := "10s"
	retriesStr := "3"
	timeoutStr := "1s"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Ping Settings").
				Description("How often to ping and how patiently to wait."),

			huh.NewInput().
				Title("Ping Interval").
				Description("Time between pings per target").
				Placeholder("10s").
				Value(&intervalStr).
				Validate(validateDuration),

			huh.NewInput().
				Title("Attempts").
				Description("Total attempts before giving up on a ping").
				Placeholder("3").
				Value(&retriesStr).
				Validate(func(s string) error {
					n, perr := strconv.Atoi(strings.TrimSpace(s))
					if perr != nil || n < 1 {
						return fmt.Errorf("enter a number of at least 1")
					}
					return nil
				}),

			huh.NewInput().
				Title("Attempt Timeout").
				Description("Reply window for each attempt").
				Placeholder("1s").
				Value(&timeoutStr).
				Validate(validateDuration),
		),
	).WithTheme(w.theme)

	if err = form.Run(); err != nil {
		return 0, 0, 0, err
	}

	interval, _ = time.ParseDuration(strings.TrimSpace(intervalStr))
	retries, _ = strconv.Atoi(strings.TrimSpace(retriesStr))
	timeout, _ = time.ParseDuration(strings.TrimSpace(timeoutStr))
	return interval, retries, timeout, nil
}

func (w *Wizard) askObservability() (metricsEnabled bool, metricsAddr, logLevel string, err error) {
	metricsAddr = ":9135"
	logLevel = "info"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Observability").
				Description("Prometheus metrics and logging."),

			huh.NewConfirm().
				Title("Enable Prometheus metrics endpoint?").
				Value(&metricsEnabled),

			huh.NewInput().
				Title("Metrics Address").
				Placeholder(":9135").
				Value(&metricsAddr).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					if _, _, perr := net.SplitHostPort(s); perr != nil {
						return fmt.Errorf("invalid address format (use host:port)")
					}
					return nil
				}),

			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("Info", "info"),
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&logLevel),
		),
	).WithTheme(w.theme)

	if err = form.Run(); err != nil {
		return false, "", "", err
	}

	return metricsEnabled, metricsAddr, logLevel, nil
}

func (w *Wizard) writeConfig(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# EthernetICMP watch configuration
# Generated by setup wizard

`
	if err := os.WriteFile(path, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (w *Wizard) printSummary(configPath string, cfg *config.Config) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("─────────────────────────────────────────────────")

	fmt.Println()
	fmt.Println(divider)
	fmt.Println(style.Render("✓ Setup Complete!"))
	fmt.Println(divider)
	fmt.Println()

	fmt.Printf("  Config file:  %s\n", configPath)
	fmt.Printf("  Targets:      %s\n", strings.Join(cfg.Monitor.Targets, ", "))
	fmt.Printf("  Interval:     %s\n", cfg.Monitor.Interval)

	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics:      http://%s/metrics\n", cfg.Metrics.Address)
	}

	fmt.Println()
	fmt.Println("  To start monitoring:")
	fmt.Printf("    ethping watch -c %s\n", configPath)
	fmt.Println()
}

func splitTargets(s string) []string {
	var targets []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fmt.Errorf("enter a positive duration like 500ms or 10s")
	}
	return nil
}
