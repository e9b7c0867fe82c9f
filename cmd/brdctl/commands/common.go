package commands

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/BerylCAtieno/brdflow/internal/agents"
	"github.com/BerylCAtieno/brdflow/internal/config"
	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/poller"
	"github.com/BerylCAtieno/brdflow/internal/services"
	"github.com/BerylCAtieno/brdflow/internal/utils"
)

// AppContext holds what every action needs to talk to the backend.
type AppContext struct {
	Config  *config.Config
	Logger  *utils.Logger
	Service services.WorkflowService
	Out     io.Writer
}

// NewAppContext loads the configuration, applies the global flag overrides
// and builds the workflow service. Logs go to stderr so stdout stays
// readable.
func NewAppContext(cmd *cli.Command) (*AppContext, error) {
	cfg, err := config.LoadFile(cmd.String("env"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if url := cmd.String("api-url"); url != "" {
		cfg.APIBaseURL = url
	}
	if interval := cmd.Duration("interval"); interval > 0 {
		cfg.PollInterval = interval
	}

	root := cmd.Root()
	logger := utils.NewLoggerTo(root.ErrWriter, cmd.String("log-level"))

	client := agents.NewClient(cfg.APIBaseURL, &http.Client{})
	watcher := poller.NewWatcher(client, logger, poller.WithInterval(cfg.PollInterval))

	return &AppContext{
		Config:  cfg,
		Logger:  logger,
		Service: services.NewService(client, watcher, logger),
		Out:     root.Writer,
	}, nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	arg := strings.TrimSpace(cmd.Args().First())
	if arg == "" {
		return "", fmt.Errorf("missing %s argument", name)
	}
	return arg, nil
}

func formatTime(ts models.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(time.DateTime)
}
