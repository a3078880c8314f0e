package main

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/worktime-engine/app"
	"github.com/warp/worktime-engine/config"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/logging"
)

type commandContext struct {
	configFlag  string
	dbFlag      string
	jsonFlag    bool
	verboseFlag bool

	// now is swapped in tests.
	now func() time.Time

	configOnce sync.Once
	config     *config.Config
	configErr  error

	appOnce sync.Once
	app     *app.App
	appErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{now: time.Now}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if db := strings.TrimSpace(c.dbFlag); db != "" {
			cfg.Storage.DBPath = db
		}
		// the CLI evaluates on demand
		cfg.Scheduler.Enabled = false
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureApp wires the engine on first use. stderr receives log output.
func (c *commandContext) ensureApp(ctx context.Context, stderr io.Writer) (*app.App, error) {
	c.appOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.appErr = err
			return
		}
		log := logging.NewWithWriter(cfg.Logging, stderr)
		if !c.verboseFlag && log.GetLevel() > logrus.WarnLevel {
			log.SetLevel(logrus.WarnLevel)
		}
		c.app, c.appErr = app.Build(ctx, cfg, log)
	})
	return c.app, c.appErr
}

func (c *commandContext) today() generic.Date { return generic.DateOf(c.now()) }

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
	}
}
