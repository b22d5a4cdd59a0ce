package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/study-advisor/internal/llm"
)

func newModelCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage advising models on the Ollama backend",
	}
	cmd.AddCommand(newModelListCmd(o), newModelCreateCmd(o))
	return cmd
}

func newModelListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed models and built-in presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Presets:")
			for _, name := range llm.PresetNames() {
				fmt.Fprintf(out, "  %-22s %s\n", name, llm.ModelPresets[name].Description)
			}

			models, err := llm.NewClient(cfg.Backend.URL).Models(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "\nBackend unreachable at %s: %v\n", cfg.Backend.URL, err)
				return nil
			}
			fmt.Fprintf(out, "\nInstalled (%d):\n", len(models))
			for _, m := range models {
				marker := " "
				if m == cfg.Backend.Model {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, m)
			}
			return nil
		},
	}
}

func newModelCreateCmd(o *rootOptions) *cobra.Command {
	var name, base string
	var writeOnly bool

	cmd := &cobra.Command{
		Use:   "create <preset>",
		Short: "Build a custom model from a preset",
		Long: `Write a Modelfile for one of the built-in presets to backend.models_dir and
register it with the backend.

Presets: ` + strings.Join(llm.PresetNames(), ", "),
		Example: `  study-advisor model create education_consultant
  study-advisor model create career_advisor --base gemma3:12b --name career-vn --write-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, ok := llm.ModelPresets[args[0]]
			if !ok {
				return fmt.Errorf("unknown preset %q (available: %s)", args[0], strings.Join(llm.PresetNames(), ", "))
			}
			if base != "" {
				spec.Base = base
			}
			if name == "" {
				name = args[0]
			}

			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			mf := llm.BuildModelfile(spec)
			path, err := llm.WriteModelfile(cfg.Backend.ModelsDir, name, mf)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Modelfile written to %s\n", path)
			if writeOnly {
				return nil
			}

			if err := llm.NewClient(cfg.Backend.URL).CreateModel(cmd.Context(), name, mf); err != nil {
				return fmt.Errorf("failed to create model %s: %w", name, err)
			}
			fmt.Fprintf(out, "Model %s created. Set backend.model: %s to use it.\n", name, name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Model name (default the preset name)")
	cmd.Flags().StringVar(&base, "base", "", "Base model (default "+llm.DefaultBaseModel+")")
	cmd.Flags().BoolVar(&writeOnly, "write-only", false, "Only write the Modelfile")
	return cmd
}
