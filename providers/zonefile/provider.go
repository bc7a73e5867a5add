// Package zonefile publishes flattened SPF record sets as local zone-file
// fragments, one file per domain.
package zonefile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"gitlab.bluewillows.net/root/spfweaver/internal/zone"
	"gitlab.bluewillows.net/root/spfweaver/pkg/provider"
)

// Compile-time interface check.
var _ provider.Provider = (*Provider)(nil)

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, command string) error
}

// osCommandRunner implements CommandRunner using the real OS.
type osCommandRunner struct {
	logger *slog.Logger
}

func (r *osCommandRunner) Run(ctx context.Context, command string) error {
	r.logger.Debug("executing command", slog.String("command", command))
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command failed: %w, output: %s", err, string(output))
	}
	return nil
}

// Provider writes the rendered record set to a local file. The write is
// atomic: content lands in a temp file in the target directory first and
// is renamed into place.
type Provider struct {
	name          string
	path          string
	dir           string
	reloadCommand string
	runner        CommandRunner
	logger        *slog.Logger
}

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets a custom logger for the provider.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner CommandRunner) ProviderOption {
	return func(p *Provider) {
		if runner != nil {
			p.runner = runner
		}
	}
}

// New creates a new zonefile provider instance.
func New(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	dir := config.GetDir()
	if config.Path != "" {
		dir = filepath.Dir(config.Path)
	}

	p := &Provider{
		name:          name,
		path:          config.Path,
		dir:           dir,
		reloadCommand: config.ReloadCommand,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.runner == nil {
		p.runner = &osCommandRunner{logger: p.logger}
	}

	p.logger.Debug("zonefile provider initialized",
		slog.String("name", name),
		slog.String("dir", p.dir),
		slog.Bool("reload", p.reloadCommand != ""),
	)

	return p, nil
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "zonefile".
func (p *Provider) Type() string {
	return "zonefile"
}

// TargetPath returns the output file path for a domain.
func (p *Provider) TargetPath(domain string) string {
	if p.path != "" {
		return p.path
	}
	return filepath.Join(p.dir, domain+".spf")
}

// Ping checks that the output directory exists and is a directory.
func (p *Provider) Ping(ctx context.Context) error {
	info, err := os.Stat(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return provider.WrapError(p.name, "ping",
				fmt.Errorf("%w: output directory does not exist: %s", provider.ErrProviderUnavailable, p.dir))
		}
		return provider.WrapError(p.name, "ping", err)
	}

	if !info.IsDir() {
		return provider.WrapError(p.name, "ping", fmt.Errorf("output path is not a directory: %s", p.dir))
	}

	return nil
}

// Publish renders the record set and replaces the domain's output file.
// If a reload command is configured it runs after a successful write.
func (p *Provider) Publish(ctx context.Context, domain string, records []provider.Record) error {
	if len(records) == 0 {
		return provider.WrapError(p.name, "publish", fmt.Errorf("no records for %s", domain))
	}

	target := p.TargetPath(domain)
	content := zone.RenderSet(domain, records)

	if err := p.writeAtomic(target, content); err != nil {
		return provider.WrapError(p.name, "publish", err)
	}

	p.logger.Info("record set written",
		slog.String("domain", domain),
		slog.String("path", target),
		slog.Int("records", len(records)),
	)

	if p.reloadCommand != "" {
		if err := p.runner.Run(ctx, p.reloadCommand); err != nil {
			return provider.WrapError(p.name, "reload", err)
		}
		p.logger.Debug("reload command succeeded", slog.String("command", p.reloadCommand))
	}

	return nil
}

// writeAtomic writes content to a temp file in the target directory and
// renames it into place.
func (p *Provider) writeAtomic(target string, content []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}

	return nil
}
