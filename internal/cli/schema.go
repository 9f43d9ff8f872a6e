package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/prodline/mdi/internal/schema"
)

func schemaCmd() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Parse and print a mapping configuration",
		Description: `Loads a mapping configuration, running the same validation the
pipeline applies at startup, and prints its field mappings, rules, and
dataset rules. Useful for checking a config before deploying it.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Mapping configuration file (default: MDI_MAPPING_CONFIG)",
			},
		},
		Action: schemaAction,
	}
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	path := cmd.String("config")
	if path == "" {
		path = cfg.Pipeline.MappingConfig
	}

	sch, err := schema.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("Mapping config: %s\n", path)
	fmt.Printf("Source:  %s (delimiter %q, header %v)\n",
		sch.Source().Name, string(sch.Source().Delimiter), sch.Source().HasHeader)
	fmt.Printf("Target:  %s.%s\n", sch.Target().Name, sch.Target().Table)
	fmt.Printf("ETL:     batch %d, on error %s, archive %v\n",
		sch.ETL().BatchSize, sch.ETL().ErrorHandling, sch.ETL().ArchiveFiles)

	fmt.Printf("\nFields (%d):\n", len(sch.Fields()))
	for _, f := range sch.Fields() {
		req := ""
		if f.Required {
			req = "  required"
		}
		fmt.Printf("  %-24s -> %-24s %s%s\n", f.SourceField, f.TargetField, f.DataType, req)
		for _, r := range f.Rules {
			fmt.Printf("      rule: %s%s\n", r.Kind, ruleParams(r))
		}
	}

	if ds := sch.DatasetRules(); len(ds) > 0 {
		fmt.Printf("\nDataset rules (%d):\n", len(ds))
		for _, d := range ds {
			fmt.Printf("  %s on {%s}\n", d.Kind, strings.Join(d.Fields, ", "))
		}
	}
	return nil
}

// ruleParams renders the kind-specific parameters for display.
func ruleParams(r schema.Rule) string {
	var parts []string
	if r.Min != nil {
		parts = append(parts, fmt.Sprintf("min=%v", *r.Min))
	}
	if r.Max != nil {
		parts = append(parts, fmt.Sprintf("max=%v", *r.Max))
	}
	if r.RawPattern != "" {
		parts = append(parts, fmt.Sprintf("pattern=%q", r.RawPattern))
	}
	if r.RawMinDate != "" {
		parts = append(parts, "min="+r.RawMinDate)
	}
	if r.RawMaxDate != "" {
		parts = append(parts, "max="+r.RawMaxDate)
	}
	if r.Table != "" {
		parts = append(parts, r.Table+"."+r.Column)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
