package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"simscan/internal/corpus"
	"simscan/internal/models"
	"simscan/internal/queue"
	"simscan/internal/util"

	"github.com/spf13/cobra"
)

func newCheckCmd(c *cli) *cobra.Command {
	var (
		asJSON  bool
		outPath string
		keyFlag string
	)
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Scan one .txt or .pdf file directly, without the queue or database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := util.ReadDocument(args[0])
			if err != nil {
				return err
			}
			searcher, err := corpus.NewSearcher(c.cfg)
			if err != nil {
				return err
			}
			cred := checkCredential(c.cfg.CorpusKeys, keyFlag)
			proc := queue.NewProcessor(queue.Deps{Searcher: searcher, Logger: c.log}, queue.OptionsFromConfig(c.cfg))

			res, err := proc.Analyze(cmd.Context(), text, cred)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := util.WriteJSONAtomic(outPath, res); err != nil {
					return err
				}
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printReport(cmd.OutOrStdout(), args[0], res)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().StringVar(&outPath, "out", "", "also write the JSON report to this path")
	cmd.Flags().StringVar(&keyFlag, "key", "", "corpus API key (default: first configured key)")
	return cmd
}

func checkCredential(configured, flagKey string) models.Credential {
	if flagKey != "" {
		return models.Credential{Label: "cli", APIKey: flagKey, Active: true}
	}
	if refs := corpus.ParseCredentialList(configured); len(refs) > 0 {
		return models.Credential{Label: refs[0].Label, APIKey: refs[0].Key, Active: true}
	}
	return models.Credential{Label: "anonymous", Active: true}
}

func printReport(w io.Writer, name string, res models.Result) error {
	fmt.Fprintf(w, "%s: %d%% similar (%d of %d sentences matched)\n",
		name, res.OverallScore, res.MatchedSentenceCount, res.TotalSentences)
	g := res.MatchGroups
	fmt.Fprintf(w, "  not cited or quoted %d%%, missing quotations %d%%, missing citation %d%%, cited and quoted %d%%\n",
		g.NotCitedOrQuoted.Percent, g.MissingQuotations.Percent, g.MissingCitation.Percent, g.CitedAndQuoted.Percent)
	if len(res.Sources) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tTYPE\tTITLE")
	for _, s := range res.Sources {
		fmt.Fprintf(tw, "%d%%\t%s\t%s\n", s.MatchPercentage, s.SourceType, util.Snippet(s.Title, 70))
	}
	return tw.Flush()
}
