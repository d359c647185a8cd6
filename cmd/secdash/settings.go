package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/secdash/internal/model"
)

var settingsFile string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and change backend settings",
	Long: `Read and change the settings the backend stores for the dashboard.
Settings are validated locally and never sent when a value is out of range.

Examples:
  secdash settings get
  secdash settings set general.theme=light monitoring.alertThreshold=80
  secdash settings set --file settings.yaml
  secdash settings validate --file settings.yaml
  secdash settings reset`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current settings",
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [section.key=value ...]",
	Short: "Change settings from a file or key=value pairs",
	RunE:  runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	RunE:  runSettingsReset,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a settings file without saving it",
	RunE:  runSettingsValidate,
}

func init() {
	settingsGetCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of YAML")
	settingsSetCmd.Flags().StringVarP(&settingsFile, "file", "f", "", "YAML or JSON settings file")
	settingsValidateCmd.Flags().StringVarP(&settingsFile, "file", "f", "", "YAML or JSON settings file")
	settingsValidateCmd.MarkFlagRequired("file")

	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	settings := svc.GetSettings(ctx)
	if jsonOutput {
		return printJSON(settings)
	}
	return printYAML(settings)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsFile == "" && len(args) == 0 {
		return fmt.Errorf("nothing to set: pass --file or key=value pairs")
	}

	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	var settings model.Settings
	if settingsFile != "" {
		settings, err = loadSettingsFile(settingsFile)
		if err != nil {
			return err
		}
	} else {
		settings = svc.GetSettings(ctx)
	}

	if len(args) > 0 {
		settings, err = applyAssignments(settings, args)
		if err != nil {
			return err
		}
	}

	status, err := svc.UpdateSettings(ctx, settings)
	if err != nil {
		printValidation(err)
		return fmt.Errorf("settings %s", status)
	}
	fmt.Println(okStyle.Render("Settings saved"))
	return nil
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	_, status, err := svc.ResetSettings(ctx)
	if err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Settings " + string(status) + " to defaults"))
	return nil
}

func runSettingsValidate(cmd *cobra.Command, args []string) error {
	settings, err := loadSettingsFile(settingsFile)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		printValidation(err)
		return fmt.Errorf("%s is invalid", settingsFile)
	}
	fmt.Println(okStyle.Render(settingsFile + " is valid"))
	return nil
}

// loadSettingsFile reads YAML or JSON settings. Missing sections and keys
// keep their defaults.
func loadSettingsFile(path string) (model.Settings, error) {
	settings := model.DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return settings, nil
}

// applyAssignments sets section.key=value pairs on settings, converting
// each value to the type the key already holds.
func applyAssignments(settings model.Settings, assignments []string) (model.Settings, error) {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return settings, err
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return settings, err
	}

	for _, a := range assignments {
		key, raw, ok := strings.Cut(a, "=")
		if !ok {
			return settings, fmt.Errorf("expected section.key=value, got %q", a)
		}
		if err := setPath(tree, strings.Split(key, "."), raw); err != nil {
			return settings, fmt.Errorf("%s: %w", key, err)
		}
	}

	data, err = yaml.Marshal(tree)
	if err != nil {
		return settings, err
	}
	out := model.DefaultSettings()
	if err := yaml.Unmarshal(data, &out); err != nil {
		return settings, err
	}
	return out, nil
}

func setPath(tree map[string]any, path []string, raw string) error {
	if len(path) != 2 {
		return fmt.Errorf("key must be section.key")
	}
	section, ok := tree[path[0]].(map[string]any)
	if !ok {
		return fmt.Errorf("unknown section %q", path[0])
	}
	current, ok := section[path[1]]
	if !ok {
		return fmt.Errorf("unknown key %q", path[1])
	}

	var (
		v   any
		err error
	)
	switch current.(type) {
	case bool:
		v, err = cast.ToBoolE(raw)
	case int:
		v, err = cast.ToIntE(raw)
	case []any:
		var items []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		v = items
	default:
		v = raw
	}
	if err != nil {
		return err
	}
	section[path[1]] = v
	return nil
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func printValidation(err error) {
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		fmt.Println(badStyle.Render(err.Error()))
		return
	}
	fmt.Println(badStyle.Render("Invalid settings:"))
	for _, f := range verr.Fields {
		fmt.Printf("  %s %s\n", labelStyle.Render(f.Field+":"), f.Message)
	}
}
