package main

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/pkg/advisor"
)

var topicsJSON bool

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the topics of the loaded topic model",
	Args:  cobra.NoArgs,
	RunE:  runTopics,
}

func init() {
	topicsCmd.Flags().BoolVar(&topicsJSON, "json", false, "print JSON instead of a table")
}

func runTopics(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := advisor.New(advisor.WithConfigFile(configPath), advisor.WithLogger(log))
	if err != nil {
		return err
	}
	defer a.Close()

	topics := a.Topics()
	if len(topics) == 0 {
		log.Warn("no topic model loaded", zap.String("topics", cfg.Models.Topics), zap.Error(a.ModelErrors()))
	}
	if topicsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(topics)
	}

	t := tablewriter.NewWriter(cmd.OutOrStdout())
	t.SetHeader([]string{"ID", "Name", "Problems", "Keywords"})
	t.SetAutoWrapText(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, tp := range topics {
		t.Append([]string{
			strconv.Itoa(tp.ID),
			tp.Name,
			strconv.Itoa(tp.Count),
			strings.Join(tp.Keywords, ", "),
		})
	}
	t.Render()
	return nil
}
