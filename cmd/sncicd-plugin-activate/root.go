package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeforge/sncicd-plugin-activate/action"
	"github.com/leeforge/sncicd-plugin-activate/activation"
	"github.com/leeforge/sncicd-plugin-activate/client"
	"github.com/leeforge/sncicd-plugin-activate/config"
	apperrors "github.com/leeforge/sncicd-plugin-activate/errors"
	"github.com/leeforge/sncicd-plugin-activate/logging"
	"github.com/leeforge/sncicd-plugin-activate/metrics"
	"github.com/leeforge/sncicd-plugin-activate/request"
)

// runner holds what one invocation writes to and reads from.
type runner struct {
	stdout     io.Writer
	stderr     io.Writer
	inputs     action.InputProvider
	sink       *action.WorkflowSink
	sleeper    activation.Sleeper
	configPath string
}

func newRunner(stdout, stderr io.Writer, inputs action.InputProvider) *runner {
	return &runner{
		stdout: stdout,
		stderr: stderr,
		inputs: inputs,
		sink:   action.NewWorkflowSink(stdout),
	}
}

// execute runs the command and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, inputs action.InputProvider) int {
	return newRunner(stdout, stderr, inputs).execute(ctx, args)
}

func (r *runner) execute(ctx context.Context, args []string) int {
	cmd := r.newRootCmd()
	// A nil slice makes cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(r.stdout)
	cmd.SetErr(r.stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		r.sink.SetFailed(err.Error())
	}
	return r.sink.ExitCode()
}

func (r *runner) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sncicd-plugin-activate",
		Short: "Activate a ServiceNow plugin through the CI/CD API",
		Long: "Activates a plugin on a ServiceNow instance and polls the activation job until it " +
			"succeeds, fails or is canceled. Credentials come from snowUsername, snowPassword and " +
			"snowInstallInstance; the plugin id from the pluginID input or --plugin-id.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				r.printVersionInfo()
				return nil
			}
			r.run(cmd)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("plugin-id", "", "Plugin to activate (overrides the pluginID input)")
	flags.String("instance", "", "Instance name, the {name} in {name}.service-now.com")
	flags.Duration("poll-timeout", 0, "Give up after this long; 0 polls until the job ends")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console, json)")
	flags.StringVar(&r.configPath, "config-path", "", "Directory holding sncicd*.yaml (default $CONFIG_PATH or .)")
	flags.Bool("version", false, "Show version information and exit")

	return cmd
}

func (r *runner) printVersionInfo() {
	_, _ = fmt.Fprintf(r.stdout, "sncicd-plugin-activate %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
	_, _ = fmt.Fprintf(r.stdout, "Go version: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// run performs one activation. Every failure ends in exactly one
// SetFailed call; success leaves only the progress lines on stdout.
func (r *runner) run(cmd *cobra.Command) {
	opts := config.DefaultOptions()
	if r.configPath != "" {
		opts.BasePath = r.configPath
	}
	opts.Flags = cmd.Flags()

	settings, err := config.Load(opts)
	if err != nil {
		r.fail(logging.NewLogger(logging.DefaultConfig(), logging.WithTerminal(r.stderr)), err)
		return
	}

	logger := logging.Init(settings.Log, logging.WithTerminal(r.stderr)).Named("sncicd")
	defer func() {
		_ = logging.Sync()
		_ = logging.CloseAllWriters()
	}()

	if err := config.Validate(settings); err != nil {
		r.fail(logger, err)
		return
	}

	pluginID, err := action.PluginID(r.inputs, settings.PluginID)
	if err != nil {
		r.fail(logger, err)
		return
	}

	cfg := activation.ActivationConfig{
		Instance: settings.Instance.Name,
		PluginID: pluginID,
		Credentials: activation.Credentials{
			Username: settings.Credentials.Username,
			Password: settings.Credentials.Password,
		},
	}

	collector := metrics.NewCollector()
	engine := activation.NewEngine(activation.EngineOptions{
		Doer: client.New(
			client.WithTimeout(settings.HTTP.Timeout),
			client.WithMetrics(collector),
		),
		Builder: activation.NewBuilderFromConfig(cfg,
			activation.WithEndpoint(settings.Instance.Scheme, settings.Instance.Domain),
			activation.WithBaseURL(settings.Instance.BaseURL),
		),
		Progress: r.stdout,
		Metrics:  collector,
		Sleeper:  r.sleeper,
		Timeout:  settings.Poll.Timeout,
	})

	ctx := request.WithCorrelationID(cmd.Context(), request.GenerateCorrelationID())
	ctx = logging.ToContext(ctx, logger)
	err = engine.Activate(ctx, cfg.PluginID)
	logging.WithContext(logger, ctx).Info("run summary", zap.Any("metrics", collector.Summary()))
	if err != nil {
		r.fail(logging.WithContext(logger, ctx), err)
	}
}

func (r *runner) fail(logger logging.Logger, err error) {
	appErr := apperrors.FromError(err)
	logger.Error("activation failed",
		zap.String("type", string(appErr.Type)),
		zap.String("code", appErr.Code),
		zap.Error(err),
	)
	r.sink.SetFailed(err.Error())
}
