package main

import (
	"net"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"spool/internal/client"
	"spool/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// serverAddress resolves the daemon base URL from the --server flag or the
// configured bind address. A bind with no host maps to the loopback address.
func (c *commandContext) serverAddress() string {
	if c.serverFlag != nil {
		if addr := strings.TrimSpace(*c.serverFlag); addr != "" {
			return addr
		}
	}
	cfg := c.configValue()
	bind := ":10000"
	if cfg != nil && strings.TrimSpace(cfg.Server.Bind) != "" {
		bind = strings.TrimSpace(cfg.Server.Bind)
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func (c *commandContext) apiToken() string {
	cfg := c.configValue()
	if cfg == nil {
		return ""
	}
	return cfg.Server.APIToken
}

func (c *commandContext) withClient(fn func(*client.Client) error) error {
	api, err := client.New(c.serverAddress(), c.apiToken())
	if err != nil {
		return err
	}
	return fn(api)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
