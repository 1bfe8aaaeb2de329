// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The "config" command.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/continuum/internal/config"
)

// ConfigPathData is the result of config path.
type ConfigPathData struct {
	Path    string `json:"path"`
	Exists  bool   `json:"exists"`
	DataDir string `json:"data_dir"`
	Journal string `json:"journal"`
}

// HandleConfig runs "config show|path|init|get|set|keys".
func HandleConfig(w io.Writer, args Args) error {
	sub := args.Params.Subcommand()
	if sub == "" {
		sub = "show"
	}

	switch sub {
	case "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config show", cfg).Write(w)
		}
		fmt.Fprintln(w, TitleStyle.Render("continuum configuration"))
		fmt.Fprintln(w, cfg.String())
		return nil

	case "path":
		path, err := configFilePath(args)
		if err != nil {
			return err
		}
		_, statErr := os.Stat(path)
		cfg := config.Default()
		if statErr == nil || args.ConfigPath == "" {
			if cfg, err = loadConfig(args); err != nil {
				return err
			}
		}
		data := ConfigPathData{
			Path:    path,
			Exists:  statErr == nil,
			DataDir: cfg.DataDir(),
			Journal: cfg.JournalPath(),
		}
		if args.JSON {
			return NewJSONResponse("config path", data).Write(w)
		}
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Config file:"), data.Path)
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Data directory:"), data.DataDir)
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Journal:"), data.Journal)
		if !data.Exists {
			fmt.Fprintln(w, DimStyle.Render("(config file does not exist; run 'continuum config init')"))
		}
		return nil

	case "init":
		path, err := configFilePath(args)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !args.Params.BoolFlag("force") {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config init", map[string]string{"path": path}).Write(w)
		}
		fmt.Fprintf(w, "%s wrote %s\n", RenderStatus("ok"), path)
		return nil

	case "get":
		key := args.Params.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "continuum config get generation.model")
		}
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		val, err := cfg.Get(key)
		if err != nil {
			return &ValidationError{Field: "key", Value: key, Reason: err.Error()}
		}
		if args.JSON {
			return NewJSONResponse("config get", map[string]interface{}{"key": key, "value": val}).Write(w)
		}
		fmt.Fprintln(w, val)
		return nil

	case "set":
		key, value := args.Params.Positional(1), JoinPositionalArgs(args.Params, 2)
		if key == "" || value == "" {
			return ErrMissingArgument("key and value", "continuum config set generation.model llama3.2")
		}
		return setConfigValue(w, args, key, value)

	case "keys":
		keys := config.GetAllKeys()
		if args.JSON {
			return NewJSONResponse("config keys", keys).Write(w)
		}
		fmt.Fprintln(w, strings.Join(keys, "\n"))
		return nil
	}

	return &ValidationError{
		Field:   "subcommand",
		Value:   sub,
		Reason:  "unknown config subcommand",
		Example: "continuum config [show|path|init|get|set|keys]",
	}
}

// setConfigValue updates one key in the config file, validating before it
// writes.
func setConfigValue(w io.Writer, args Args, key, value string) error {
	path, err := configFilePath(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if strings.HasSuffix(path, ".json") {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if strings.HasSuffix(path, ".json") {
		err = config.SaveJSON(cfg, path)
	} else {
		err = config.SaveTOML(cfg, path)
	}
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config set", map[string]string{"key": key, "value": value, "path": path}).Write(w)
	}
	fmt.Fprintf(w, "%s %s = %s\n", RenderStatus("ok"), key, value)
	return nil
}

// configFilePath is --config when given, else the default TOML path.
func configFilePath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}
