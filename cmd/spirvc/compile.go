package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/spirv-bridge/pkg/spirv"
)

type compileOptions struct {
	stage   string
	defines []string
	debug   bool
	output  string
}

func newCompileCmd(root *rootOptions) *cobra.Command {
	opts := &compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a GLSL shader",
		Long: `Compile a GLSL shader to SPIR-V.

The stage is taken from the file extension (.vert, .frag, .comp, .geom,
.tesc, .tese) unless --stage is given. Output goes to <file>.spv unless
--output is given; "-" writes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), root, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.stage, "stage", "S", "", "Shader stage: vert, frag, comp, geom, tesc or tese")
	cmd.Flags().StringArrayVarP(&opts.defines, "define", "D", nil, "Define a macro as NAME or NAME=VALUE")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "g", false, "Keep debug information and skip optimization")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file")
	return cmd
}

func runCompile(ctx context.Context, root *rootOptions, opts *compileOptions, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stage, err := resolveStage(opts.stage, path)
	if err != nil {
		return err
	}
	macros, err := parseDefines(opts.defines)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	logger, err := root.logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	compiler, err := spirv.Open(ctx, root.configPath, logger)
	if err != nil {
		return fmt.Errorf("failed to start compiler: %w", err)
	}
	defer compiler.Close(ctx)

	logger.Debug("Compiling shader",
		zap.String("file", path),
		zap.Stringer("stage", stage),
		zap.Int("macros", len(macros)),
	)

	res, err := compiler.CompileGlslBytesToSpirv(source, path, stage, spirv.GlslCompileOptions{
		Debug:  opts.debug,
		Macros: macros,
	})
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = path + ".spv"
	}
	if out == "-" {
		_, err := os.Stdout.Write(res.SpirvBytes)
		return err
	}
	if err := os.WriteFile(out, res.SpirvBytes, 0o644); err != nil {
		return err
	}
	pterm.Success.Printfln("%s -> %s (%d bytes)", path, out, len(res.SpirvBytes))
	return nil
}

var stageNames = map[string]spirv.ShaderStages{
	"vert": spirv.StageVertex,
	"frag": spirv.StageFragment,
	"comp": spirv.StageCompute,
	"geom": spirv.StageGeometry,
	"tesc": spirv.StageTessellationControl,
	"tese": spirv.StageTessellationEvaluation,
}

// resolveStage uses the explicit stage name if set, else the file extension.
func resolveStage(name, path string) (spirv.ShaderStages, error) {
	if name != "" {
		if s, ok := stageNames[strings.ToLower(name)]; ok {
			return s, nil
		}
		return spirv.StageNone, fmt.Errorf("unknown stage %q", name)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if s, ok := stageNames[ext]; ok {
		return s, nil
	}
	return spirv.StageNone, fmt.Errorf("cannot infer stage from %q, use --stage", path)
}

// parseDefines turns NAME and NAME=VALUE arguments into macros.
func parseDefines(defs []string) ([]spirv.MacroDefinition, error) {
	macros := make([]spirv.MacroDefinition, 0, len(defs))
	for _, d := range defs {
		name, value, _ := strings.Cut(d, "=")
		if name == "" {
			return nil, fmt.Errorf("invalid macro definition %q", d)
		}
		macros = append(macros, spirv.MacroDefinition{Name: name, Value: value})
	}
	return macros, nil
}
