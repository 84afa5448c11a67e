package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/moatasem-alhilali/wadash/internal/config"
	"github.com/moatasem-alhilali/wadash/internal/profile"
)

type profilePaths struct {
	Profile string `json:"profile"`
	Config  string `json:"config"`
	Dir     string `json:"dir"`
	Cache   string `json:"cache"`
	Lock    string `json:"lock"`
	Log     string `json:"log"`
}

func (c *cli) paths() profilePaths {
	return profilePaths{
		Profile: c.profile,
		Config:  c.configPath,
		Dir:     profile.Dir(c.profile),
		Cache:   profile.CachePath(c.profile),
		Lock:    profile.LockPath(c.profile),
		Log:     profile.LogPath(c.profile),
	}
}

func (c *cli) configCmd(sub string, args []string) error {
	switch sub {
	case "show":
		if c.jsonOut {
			outputJSON(c.out, map[string]any{"paths": c.paths(), "config": c.cfg})
			return nil
		}
		p := c.paths()
		fmt.Fprintf(c.out, "# profile %s\n# config  %s\n# cache   %s\n# lock    %s\n# log     %s\n\n",
			p.Profile, p.Config, p.Cache, p.Lock, p.Log)
		return toml.NewEncoder(c.out).Encode(c.cfg)
	case "init":
		_, force := splitFlag(args, "--force")
		if _, err := os.Stat(c.configPath); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", c.configPath)
		}
		cfg := config.Default()
		cfg.DefaultProfile = c.profile
		if err := config.Save(c.configPath, cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		if err := profile.EnsureDir(c.profile); err != nil {
			return fmt.Errorf("create profile dir: %w", err)
		}
		fmt.Fprintf(c.out, "Wrote %s\n", c.configPath)
		return nil
	case "use":
		if len(args) < 1 {
			return errors.New("usage: wactl config use <profile>")
		}
		if err := profile.ValidateName(args[0]); err != nil {
			return err
		}
		cfg, err := config.Load(c.configPath)
		if errors.Is(err, os.ErrNotExist) {
			cfg, err = &config.Config{}, nil
		}
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		cfg.DefaultProfile = args[0]
		if err := config.Save(c.configPath, cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(c.out, "Default profile is now %s\n", args[0])
		return nil
	default:
		return fmt.Errorf("unknown config subcommand: %s", sub)
	}
}
