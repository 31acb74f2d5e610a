package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/signal-research/internal/export"
)

var (
	researchFormat string
	researchXLSX   string
)

var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Research a market question and print signals, noise and a decision",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(researchFormat)
		if err != nil {
			return err
		}

		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return eris.New("research: query is empty")
		}

		env, err := initApp(cfg, "research")
		if err != nil {
			return err
		}

		report, err := env.Research.ProcessQuery(cmd.Context(), query)
		if err != nil {
			zap.L().Error("research failed", zap.String("query", query), zap.Error(err))
		}

		if researchXLSX != "" {
			if xerr := export.WriteXLSX(researchXLSX, report); xerr != nil {
				return xerr
			}
			zap.L().Info("wrote workbook", zap.String("path", researchXLSX))
		}

		if werr := export.Write(cmd.OutOrStdout(), format, report); werr != nil {
			return werr
		}
		return err
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchFormat, "format", "text", "output format: text, json or yaml")
	researchCmd.Flags().StringVar(&researchXLSX, "xlsx", "", "also write the report to this .xlsx file")
	rootCmd.AddCommand(researchCmd)
}
