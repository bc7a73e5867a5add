// Package sftp publishes flattened SPF record sets as zone-file fragments
// on a remote host over SSH/SFTP.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"gitlab.bluewillows.net/root/spfweaver/internal/zone"
	"gitlab.bluewillows.net/root/spfweaver/pkg/provider"
	"gitlab.bluewillows.net/root/spfweaver/pkg/sshutil"
)

// Compile-time interface check.
var _ provider.Provider = (*Provider)(nil)

// Provider writes the rendered record set to a file on a remote host.
// Like the zonefile provider the write is two-phase: content lands in a
// temp file next to the target and is renamed into place.
type Provider struct {
	name          string
	path          string
	dir           string
	reloadCommand string

	client *sshutil.Client
	sftpFS *sshutil.SFTPFileSystem // nil when a custom FileSystem is injected
	fs     sshutil.FileSystem
	runner sshutil.CommandRunner
	logger *slog.Logger

	mu sync.Mutex // serializes connect and publish
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

// WithFileSystem sets a custom file system (for testing). When set, no
// SSH connection is established.
func WithFileSystem(fs sshutil.FileSystem) ProviderOption {
	return func(p *Provider) {
		if fs != nil {
			p.fs = fs
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner sshutil.CommandRunner) ProviderOption {
	return func(p *Provider) {
		if runner != nil {
			p.runner = runner
		}
	}
}

// New creates a new SFTP provider instance.
func New(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	dir := config.GetDir()
	if config.Path != "" {
		dir = path.Dir(config.Path)
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

	if p.fs == nil {
		client, err := sshutil.NewClient(config.SSH, sshutil.WithLogger(p.logger))
		if err != nil {
			return nil, fmt.Errorf("creating SSH client: %w", err)
		}
		p.client = client

		sftpFS := sshutil.NewSFTPFileSystem(client, sshutil.WithSFTPLogger(p.logger))
		p.sftpFS = sftpFS
		p.fs = sftpFS

		if p.runner == nil {
			p.runner = sshutil.NewSSHCommandRunner(client, sshutil.WithCommandLogger(p.logger))
		}
	}

	p.logger.Debug("SFTP provider initialized",
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

// Type returns "sftp".
func (p *Provider) Type() string {
	return "sftp"
}

// TargetPath returns the remote output file path for a domain.
func (p *Provider) TargetPath(domain string) string {
	if p.path != "" {
		return p.path
	}
	return path.Join(p.dir, domain+".spf")
}

// Close tears down the SFTP session and the SSH connection.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.sftpFS != nil {
		if err := p.sftpFS.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ensureConnected establishes the SSH connection and SFTP session if the
// provider owns them. Callers must hold p.mu.
func (p *Provider) ensureConnected(ctx context.Context) error {
	if p.client == nil {
		return nil // injected filesystem, nothing to connect
	}

	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil && !errors.Is(err, sshutil.ErrAlreadyConnected) {
			return fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err)
		}
	}

	if err := p.sftpFS.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err)
	}

	return nil
}

// Ping connects and checks that the remote output directory exists.
func (p *Provider) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(ctx); err != nil {
		return provider.WrapError(p.name, "ping", err)
	}

	info, err := p.fs.Stat(p.dir)
	if err != nil {
		return provider.WrapError(p.name, "ping",
			fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err))
	}

	if !info.IsDir() {
		return provider.WrapError(p.name, "ping", fmt.Errorf("output path is not a directory: %s", p.dir))
	}

	return nil
}

// Publish renders the record set and replaces the domain's remote file.
// If a reload command is configured it runs on the remote host after a
// successful write.
func (p *Provider) Publish(ctx context.Context, domain string, records []provider.Record) error {
	if len(records) == 0 {
		return provider.WrapError(p.name, "publish", fmt.Errorf("no records for %s", domain))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(ctx); err != nil {
		return provider.WrapError(p.name, "publish", err)
	}

	target := p.TargetPath(domain)
	tmp := target + ".tmp"
	content := zone.RenderSet(domain, records)

	if err := p.fs.WriteFile(tmp, content, 0o644); err != nil {
		return provider.WrapError(p.name, "publish", fmt.Errorf("writing temp file: %w", err))
	}

	if err := p.fs.Rename(tmp, target); err != nil {
		_ = p.fs.Remove(tmp) // Best effort cleanup
		return provider.WrapError(p.name, "publish", fmt.Errorf("renaming into place: %w", err))
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
