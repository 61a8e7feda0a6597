package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noah-isme/gema-eval-console/internal/dto"
	"github.com/noah-isme/gema-eval-console/internal/platform"
	"github.com/noah-isme/gema-eval-console/internal/service"
)

var version = "dev"

// actionError marks a failure reported by the platform, as opposed to a usage error.
type actionError struct {
	notice dto.Notice
}

func (e *actionError) Error() string {
	if len(e.notice.Fields) == 0 {
		return e.notice.Message
	}
	fields := make([]string, 0, len(e.notice.Fields))
	for _, f := range e.notice.Fields {
		fields = append(fields, string(f))
	}
	return fmt.Sprintf("%s (check: %s)", e.notice.Message, strings.Join(fields, ", "))
}

type cliOptions struct {
	v      *viper.Viper
	stderr io.Writer
}

func (o *cliOptions) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if o.v.GetBool("debug") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: o.stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func (o *cliOptions) jsonOutput() bool {
	return strings.EqualFold(o.v.GetString("output"), "json")
}

func (o *cliOptions) client() (*platform.Client, error) {
	baseURL := strings.TrimSpace(o.v.GetString("platform.base_url"))
	if baseURL == "" {
		return nil, fmt.Errorf("platform url required: pass --base-url or set GEMA_PLATFORM_BASE_URL")
	}
	return platform.New(platform.Config{
		BaseURL:   baseURL,
		CSRFToken: o.v.GetString("platform.csrf_token"),
		Timeout:   o.v.GetDuration("platform.timeout"),
	}, o.logger())
}

func (o *cliOptions) configService() (service.EvaluationConfigService, error) {
	client, err := o.client()
	if err != nil {
		return nil, err
	}
	return service.NewEvaluationConfigService(client, nil, 0, nil, "", o.logger()), nil
}

func (o *cliOptions) previewService() (service.EvaluationPreviewService, error) {
	client, err := o.client()
	if err != nil {
		return nil, err
	}
	return service.NewEvaluationPreviewService(client, o.logger()), nil
}

// requestContext carries the session cookie and a fresh correlation id to the platform.
func (o *cliOptions) requestContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return platform.WithRequestMeta(ctx, platform.RequestMeta{
		CorrelationID: uuid.NewString(),
		CSRFToken:     o.v.GetString("platform.csrf_token"),
		Cookie:        o.v.GetString("platform.cookie"),
	})
}

func (o *cliOptions) printJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{v: viper.New(), stderr: os.Stderr}
	opts.v.SetEnvPrefix("GEMA")
	opts.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	opts.v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "evalctl",
		Short: "Operate the GEMA student evaluation settings",
		Long: `evalctl resolves evaluation periods, runs evaluation previews and edits the
evaluation weights stored on the GEMA learning platform.

Platform access uses the administrator's session cookie and CSRF token.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("base-url", "", "Platform base URL (GEMA_PLATFORM_BASE_URL)")
	flags.String("csrf-token", "", "CSRF token sent with write requests (GEMA_PLATFORM_CSRF_TOKEN)")
	flags.String("cookie", "", "Session cookie header value (GEMA_PLATFORM_COOKIE)")
	flags.Duration("timeout", 15*time.Second, "Platform request timeout")
	flags.StringP("output", "o", "text", "Output format: text or json")
	flags.Bool("debug", false, "Enable debug logging")

	_ = opts.v.BindPFlag("platform.base_url", flags.Lookup("base-url"))
	_ = opts.v.BindPFlag("platform.csrf_token", flags.Lookup("csrf-token"))
	_ = opts.v.BindPFlag("platform.cookie", flags.Lookup("cookie"))
	_ = opts.v.BindPFlag("platform.timeout", flags.Lookup("timeout"))
	_ = opts.v.BindPFlag("output", flags.Lookup("output"))
	_ = opts.v.BindPFlag("debug", flags.Lookup("debug"))

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		opts.stderr = cmd.ErrOrStderr()
	}

	cmd.AddCommand(newRangeCommand(opts))
	cmd.AddCommand(newWeekCommand(opts))
	cmd.AddCommand(newWeekPresetCommand(opts))
	cmd.AddCommand(newPreviewCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))

	return cmd
}

func execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}
